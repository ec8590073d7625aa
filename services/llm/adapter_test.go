package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/config"
	"github.com/WriterGao/CoreMind/models"
)

func adapterForServer(t *testing.T, ollamaURL string) *Adapter {
	t.Helper()
	return NewAdapter(config.ProvidersConfig{
		OllamaBaseURL:  ollamaURL,
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
}

func openAISuccessBody(content string) map[string]any {
	return map[string]any{
		"id": "chatcmpl-test",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     12,
			"completion_tokens": 8,
			"total_tokens":      20,
		},
	}
}

func TestAdapter_Send_CompatibleMode(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody openAIRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccessBody("compatible reply"))
	}))
	defer server.Close()

	adapter := adapterForServer(t, "")
	result, err := adapter.Send(context.Background(), &ChatRequest{
		Profile: Profile{
			Provider:    models.ProviderAlibabaQwen,
			Model:       "qwen-turbo",
			BaseURL:     server.URL + "/compatible-mode/v1",
			APIKey:      "sk-test",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Messages: []Message{
			{Role: "system", Content: "You are helpful"},
			{Role: "user", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/compatible-mode/v1/chat/completions" {
		t.Errorf("path = %s, want /compatible-mode/v1/chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotBody.Model != "qwen-turbo" {
		t.Errorf("model = %s, want qwen-turbo", gotBody.Model)
	}
	// Messages must pass through verbatim, system role included
	if len(gotBody.Messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Content != "hello" {
		t.Errorf("messages not passed through verbatim: %+v", gotBody.Messages)
	}
	if result.Content != "compatible reply" {
		t.Errorf("Content = %q, want compatible reply", result.Content)
	}
	if result.Usage.TotalTokens != 20 {
		t.Errorf("TotalTokens = %d, want 20", result.Usage.TotalTokens)
	}
}

func TestAdapter_Send_QwenNative(t *testing.T) {
	var gotPath string
	var gotBody qwenNativeRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"output": {"choices": [{"message": {"role": "assistant", "content": "native reply"}, "finish_reason": "stop"}]},
			"usage": {"input_tokens": 15, "output_tokens": 5, "total_tokens": 20},
			"request_id": "req-abc"
		}`))
	}))
	defer server.Close()

	adapter := adapterForServer(t, "")
	result, err := adapter.Send(context.Background(), &ChatRequest{
		Profile: Profile{
			Provider:    models.ProviderAlibabaQwenLegacy,
			Model:       "qwen-max",
			BaseURL:     server.URL,
			APIKey:      "sk-test",
			Temperature: 0.5,
			MaxTokens:   1024,
		},
		Messages: []Message{
			{Role: "user", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/api/v1/services/aigc/text-generation/generation" {
		t.Errorf("path = %s, want the DashScope generation path", gotPath)
	}
	// Native shape wraps messages under input and tuning under parameters
	if len(gotBody.Input.Messages) != 1 || gotBody.Input.Messages[0].Content != "hello" {
		t.Errorf("input.messages = %+v, want single hello message", gotBody.Input.Messages)
	}
	if gotBody.Parameters.Temperature != 0.5 || gotBody.Parameters.MaxTokens != 1024 {
		t.Errorf("parameters = %+v, want temperature 0.5 and max_tokens 1024", gotBody.Parameters)
	}
	if result.Content != "native reply" {
		t.Errorf("Content = %q, want native reply", result.Content)
	}
	if result.Usage.PromptTokens != 15 || result.Usage.CompletionTokens != 5 {
		t.Errorf("Usage = %+v, want 15/5", result.Usage)
	}
}

func TestAdapter_Send_QwenNative_TextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output": {"text": "plain text reply"}, "usage": {"input_tokens": 3, "output_tokens": 4, "total_tokens": 7}}`))
	}))
	defer server.Close()

	adapter := adapterForServer(t, "")
	result, err := adapter.Send(context.Background(), &ChatRequest{
		Profile: Profile{
			Provider: models.ProviderAlibabaQwenLegacy,
			Model:    "qwen-turbo",
			BaseURL:  server.URL,
			APIKey:   "sk-test",
		},
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.Content != "plain text reply" {
		t.Errorf("Content = %q, want plain text reply", result.Content)
	}
}

func TestAdapter_Send_Ollama(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody ollamaRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": {"role": "assistant", "content": "local reply"}, "prompt_eval_count": 9, "eval_count": 6}`))
	}))
	defer server.Close()

	adapter := adapterForServer(t, server.URL)
	result, err := adapter.Send(context.Background(), &ChatRequest{
		Profile: Profile{
			Provider:    models.ProviderOllama,
			Model:       "llama3",
			Temperature: 0.9,
			MaxTokens:   512,
		},
		Messages: []Message{
			{Role: "system", Content: "You are helpful"},
			{Role: "user", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/api/chat" {
		t.Errorf("path = %s, want /api/chat", gotPath)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty for keyless ollama", gotAuth)
	}
	// System messages are filtered out for the ollama chat endpoint
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want system role dropped", gotBody.Messages)
	}
	if gotBody.Stream {
		t.Error("stream must be false")
	}
	if gotBody.Options.NumPredict != 512 {
		t.Errorf("options.num_predict = %d, want 512", gotBody.Options.NumPredict)
	}
	if result.Content != "local reply" {
		t.Errorf("Content = %q, want local reply", result.Content)
	}
	if result.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", result.Usage.TotalTokens)
	}
}

func TestAdapter_Send_ShapesNormalizeIdentically(t *testing.T) {
	openAIServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccessBody("hi"))
	}))
	defer openAIServer.Close()

	nativeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output": {"choices": [{"message": {"role": "assistant", "content": "hi"}}]}, "usage": {"input_tokens": 12, "output_tokens": 8, "total_tokens": 20}}`))
	}))
	defer nativeServer.Close()

	adapter := adapterForServer(t, "")
	messages := []Message{{Role: "user", Content: "say hi"}}

	compat, err := adapter.Send(context.Background(), &ChatRequest{
		Profile: Profile{
			Provider: models.ProviderCustom,
			Model:    "m",
			BaseURL:  openAIServer.URL,
			APIKey:   "sk-a",
		},
		Messages: messages,
	})
	if err != nil {
		t.Fatalf("openai-shape Send() error = %v", err)
	}

	native, err := adapter.Send(context.Background(), &ChatRequest{
		Profile: Profile{
			Provider: models.ProviderAlibabaQwenLegacy,
			Model:    "m",
			BaseURL:  nativeServer.URL,
			APIKey:   "sk-b",
		},
		Messages: messages,
	})
	if err != nil {
		t.Fatalf("native-shape Send() error = %v", err)
	}

	if compat.Content != native.Content {
		t.Errorf("normalized content differs: %q vs %q", compat.Content, native.Content)
	}
	if compat.Usage != native.Usage {
		t.Errorf("normalized usage differs: %+v vs %+v", compat.Usage, native.Usage)
	}
}

func TestAdapter_Send_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
	}{
		{
			name:     "401 maps to authentication",
			status:   http.StatusUnauthorized,
			body:     `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`,
			wantKind: KindAuthentication,
		},
		{
			name:     "403 maps to authorization",
			status:   http.StatusForbidden,
			body:     `{"error": {"message": "Insufficient balance"}}`,
			wantKind: KindAuthorization,
		},
		{
			name:     "404 maps to not_found",
			status:   http.StatusNotFound,
			body:     `{"error": {"message": "The model does not exist"}}`,
			wantKind: KindNotFound,
		},
		{
			name:     "429 maps to rate_limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error": {"message": "Rate limit reached"}}`,
			wantKind: KindRateLimited,
		},
		{
			name:     "500 maps to unknown",
			status:   http.StatusInternalServerError,
			body:     `{"error": {"message": "upstream exploded"}}`,
			wantKind: KindUnknown,
		},
		{
			name:     "unparseable error body still classifies by status",
			status:   http.StatusUnauthorized,
			body:     `<html>not json</html>`,
			wantKind: KindAuthentication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := adapterForServer(t, "")
			_, err := adapter.Send(context.Background(), &ChatRequest{
				Profile: Profile{
					Provider: models.ProviderCustom,
					Model:    "m",
					BaseURL:  server.URL,
					APIKey:   "sk-test",
				},
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
			if err == nil {
				t.Fatal("Expected error but got none")
			}

			var provErr *Error
			if !errors.As(err, &provErr) {
				t.Fatalf("Expected *Error, got %T", err)
			}
			if provErr.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", provErr.Kind, tt.wantKind)
			}
			if provErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", provErr.StatusCode, tt.status)
			}
			if provErr.Detail == "" {
				t.Error("Detail should carry the raw body")
			}
		})
	}
}

func TestAdapter_Send_ProviderMessageInHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Incorrect API key provided"}}`))
	}))
	defer server.Close()

	adapter := adapterForServer(t, "")
	_, err := adapter.Send(context.Background(), &ChatRequest{
		Profile:  Profile{Provider: models.ProviderCustom, Model: "m", BaseURL: server.URL, APIKey: "sk-bad"},
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Expected error but got none")
	}

	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if !strings.Contains(provErr.Hint, "Incorrect API key provided") {
		t.Errorf("Hint %q should contain the provider's own message", provErr.Hint)
	}
}

func TestAdapter_Send_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty choices", body: `{"choices": [], "usage": {}}`},
		{name: "missing content", body: `{"choices": [{"message": {"role": "assistant"}}]}`},
		{name: "not json", body: `hello world`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := adapterForServer(t, "")
			_, err := adapter.Send(context.Background(), &ChatRequest{
				Profile:  Profile{Provider: models.ProviderCustom, Model: "m", BaseURL: server.URL, APIKey: "sk-test"},
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if KindOf(err) != KindMalformedResponse {
				t.Errorf("Kind = %s, want %s", KindOf(err), KindMalformedResponse)
			}
		})
	}
}

func TestAdapter_Send_MissingAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	adapter := adapterForServer(t, "")
	_, err := adapter.Send(context.Background(), &ChatRequest{
		Profile:  Profile{Provider: models.ProviderOpenAI, Model: "gpt-4o", BaseURL: server.URL},
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Expected error but got none")
	}
	if KindOf(err) != KindAuthentication {
		t.Errorf("Kind = %s, want %s", KindOf(err), KindAuthentication)
	}
	if called {
		t.Error("No HTTP request should be made when the key is missing")
	}
}

func TestAdapter_Send_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can detect the
		// client disconnect and cancel the request context.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	adapter := adapterForServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.Send(ctx, &ChatRequest{
		Profile:  Profile{Provider: models.ProviderCustom, Model: "m", BaseURL: server.URL, APIKey: "sk-test"},
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Expected error but got none")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("Kind = %s, want %s", KindOf(err), KindNetwork)
	}
}

func TestAdapter_Send_UnreachableHost(t *testing.T) {
	adapter := adapterForServer(t, "")
	_, err := adapter.Send(context.Background(), &ChatRequest{
		Profile:  Profile{Provider: models.ProviderCustom, Model: "m", BaseURL: "http://127.0.0.1:1", APIKey: "sk-test"},
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Expected error but got none")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("Kind = %s, want %s", KindOf(err), KindNetwork)
	}
}

func TestErrorDetailTruncation(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	if got := truncate(long); len(got) != maxDetailBytes {
		t.Errorf("len(truncate(long)) = %d, want %d", len(got), maxDetailBytes)
	}
	if got := truncate([]byte("short")); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
}
