package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/WriterGao/CoreMind/config"
	"github.com/WriterGao/CoreMind/models"
	"go.uber.org/zap"
)

// maxDetailBytes caps how much of a raw provider body is attached to an
// error as diagnostic context
const maxDetailBytes = 200

// Adapter shapes logical chat requests into provider-specific HTTP calls
// and normalizes the responses. It is stateless and safe for concurrent
// use; it performs exactly one outbound call per Send and never retries.
type Adapter struct {
	httpClient *http.Client
	defaults   map[models.Provider]string
	logger     *zap.Logger
}

// NewAdapter creates an Adapter. The default base URL table is built once
// here and never mutated afterwards.
func NewAdapter(cfg config.ProvidersConfig, logger *zap.Logger) *Adapter {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Adapter{
		httpClient: &http.Client{Timeout: timeout},
		defaults:   defaultBaseURLs(cfg.OllamaBaseURL),
		logger:     logger,
	}
}

// Send performs one chat completion round-trip. It returns exactly one of
// a Result or an *Error; cancellation of ctx aborts the outbound call and
// surfaces as a network-kind error.
func (a *Adapter) Send(ctx context.Context, req *ChatRequest) (*Result, error) {
	p := req.Profile

	if p.Provider.RequiresAPIKey() && p.APIKey == "" {
		return nil, newError(KindAuthentication, 0,
			"no API key is configured for this provider", "", nil)
	}

	ep, resolveErr := a.resolve(p)
	if resolveErr != nil {
		return nil, resolveErr
	}

	body, err := a.buildBody(ep.shape, req)
	if err != nil {
		return nil, newError(KindUnknown, 0, "failed to encode request", "", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return nil, newError(KindUnknown, 0, "failed to build request", "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	a.logger.Debug("dispatching chat request",
		zap.String("provider", string(p.Provider)),
		zap.String("model", p.Model),
		zap.Int("messages", len(req.Messages)))

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, newError(KindNetwork, 0, "", "", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newError(KindNetwork, httpResp.StatusCode, "failed to read response body", "", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, a.classifyError(httpResp.StatusCode, respBody)
	}

	// Symmetry invariant: parse with the same shape the request was built in
	return a.parseBody(ep.shape, respBody)
}

// buildBody marshals the request in the wire shape the endpoint expects
func (a *Adapter) buildBody(shape wireShape, req *ChatRequest) ([]byte, error) {
	p := req.Profile
	switch shape {
	case shapeQwenNative:
		msgs := make([]wireMessage, 0, len(req.Messages))
		for _, m := range req.Messages {
			switch m.Role {
			case models.RoleSystem, models.RoleUser, models.RoleAssistant:
				msgs = append(msgs, wireMessage{Role: m.Role, Content: m.Content})
			}
		}
		return json.Marshal(qwenNativeRequest{
			Model: p.Model,
			Input: qwenInput{Messages: msgs},
			Parameters: qwenParameters{
				Temperature: p.Temperature,
				MaxTokens:   p.MaxTokens,
			},
		})
	case shapeOllama:
		// Ollama's chat endpoint rejects the system role; drop it, matching
		// the admin UI's documented behavior
		msgs := make([]wireMessage, 0, len(req.Messages))
		for _, m := range req.Messages {
			if m.Role == models.RoleSystem {
				continue
			}
			msgs = append(msgs, wireMessage{Role: m.Role, Content: m.Content})
		}
		return json.Marshal(ollamaRequest{
			Model:    p.Model,
			Messages: msgs,
			Stream:   false,
			Options: ollamaOptions{
				Temperature: p.Temperature,
				NumPredict:  p.MaxTokens,
			},
		})
	default:
		msgs := make([]wireMessage, len(req.Messages))
		for i, m := range req.Messages {
			msgs[i] = wireMessage{Role: m.Role, Content: m.Content}
		}
		return json.Marshal(openAIRequest{
			Model:       p.Model,
			Messages:    msgs,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Stream:      req.Stream,
		})
	}
}

// parseBody reads the success payload for the given shape. A missing
// content field yields a malformed_response error, never a panic.
func (a *Adapter) parseBody(shape wireShape, body []byte) (*Result, error) {
	switch shape {
	case shapeQwenNative:
		var resp qwenNativeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, newError(KindMalformedResponse, 0, "", truncate(body), err)
		}
		// Newer DashScope responses nest choices under output; older ones
		// return output.text directly
		if len(resp.Output.Choices) > 0 && resp.Output.Choices[0].Message.Content != "" {
			return &Result{
				Content: resp.Output.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.InputTokens,
					CompletionTokens: resp.Usage.OutputTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}, nil
		}
		if resp.Output.Text != "" {
			return &Result{
				Content: resp.Output.Text,
				Usage: Usage{
					PromptTokens:     resp.Usage.InputTokens,
					CompletionTokens: resp.Usage.OutputTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}, nil
		}
		return nil, newError(KindMalformedResponse, 0, "response carries no output text", truncate(body), nil)
	case shapeOllama:
		var resp ollamaResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, newError(KindMalformedResponse, 0, "", truncate(body), err)
		}
		if resp.Message.Content == "" {
			return nil, newError(KindMalformedResponse, 0, "response carries no message content", truncate(body), nil)
		}
		return &Result{
			Content: resp.Message.Content,
			Usage: Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			},
		}, nil
	default:
		var resp openAIResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, newError(KindMalformedResponse, 0, "", truncate(body), err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return nil, newError(KindMalformedResponse, 0, "response carries no choices", truncate(body), nil)
		}
		return &Result{
			Content: resp.Choices[0].Message.Content,
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}, nil
	}
}

// classifyError maps a non-2xx response to a normalized error, pulling the
// provider's own message into the hint when the body carries one
func (a *Adapter) classifyError(status int, body []byte) *Error {
	kind := classifyStatus(status)
	return newError(kind, status, extractProviderMessage(body), truncate(body), nil)
}

// extractProviderMessage digs a machine-readable message out of a provider
// error body. Handles the OpenAI {"error":{"message":...}} envelope and the
// DashScope flat {"message":...} / {"error":...} forms.
func extractProviderMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if err := json.Unmarshal(envelope.Error, &flat); err == nil {
			return flat
		}
	}
	return ""
}

func truncate(body []byte) string {
	if len(body) > maxDetailBytes {
		return string(body[:maxDetailBytes])
	}
	return string(body)
}

// Wire types

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type qwenInput struct {
	Messages []wireMessage `json:"messages"`
}

type qwenParameters struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type qwenNativeRequest struct {
	Model      string         `json:"model"`
	Input      qwenInput      `json:"input"`
	Parameters qwenParameters `json:"parameters"`
}

type qwenNativeResponse struct {
	Output struct {
		Text    string `json:"text"`
		Choices []struct {
			Message      wireMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Message         wireMessage `json:"message"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}
