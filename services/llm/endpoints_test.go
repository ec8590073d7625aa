package llm

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/config"
	"github.com/WriterGao/CoreMind/models"
)

func newTestAdapter() *Adapter {
	return NewAdapter(config.ProvidersConfig{
		OllamaBaseURL:  "http://localhost:11434",
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestAdapter_Resolve(t *testing.T) {
	adapter := newTestAdapter()

	tests := []struct {
		name      string
		provider  models.Provider
		baseURL   string
		wantShape wireShape
		wantURL   string
	}{
		{
			name:      "openai with no base URL uses default",
			provider:  models.ProviderOpenAI,
			wantShape: shapeOpenAI,
			wantURL:   "https://api.openai.com/v1/chat/completions",
		},
		{
			name:      "deepseek with no base URL uses default",
			provider:  models.ProviderDeepSeek,
			wantShape: shapeOpenAI,
			wantURL:   "https://api.deepseek.com/v1/chat/completions",
		},
		{
			name:      "qwen with no base URL uses compatible-mode default",
			provider:  models.ProviderAlibabaQwen,
			wantShape: shapeOpenAI,
			wantURL:   "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		},
		{
			name:      "compatible-mode URL selects openai shape",
			provider:  models.ProviderAlibabaQwen,
			baseURL:   "https://dashscope.aliyuncs.com/compatible-mode/v1",
			wantShape: shapeOpenAI,
			wantURL:   "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		},
		{
			name:      "compatible-mode URL wins even on legacy kind",
			provider:  models.ProviderAlibabaQwenLegacy,
			baseURL:   "https://dashscope.aliyuncs.com/compatible-mode/v1",
			wantShape: shapeOpenAI,
			wantURL:   "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		},
		{
			name:      "legacy kind with no base URL gets native path",
			provider:  models.ProviderAlibabaQwenLegacy,
			wantShape: shapeQwenNative,
			wantURL:   "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
		},
		{
			name:      "legacy kind with bare host gets native path appended",
			provider:  models.ProviderAlibabaQwenLegacy,
			baseURL:   "https://dashscope.aliyuncs.com",
			wantShape: shapeQwenNative,
			wantURL:   "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
		},
		{
			name:      "legacy kind with full generation URL left untouched",
			provider:  models.ProviderAlibabaQwenLegacy,
			baseURL:   "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
			wantShape: shapeQwenNative,
			wantURL:   "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
		},
		{
			name:      "ollama with no base URL uses configured default",
			provider:  models.ProviderOllama,
			wantShape: shapeOllama,
			wantURL:   "http://localhost:11434/api/chat",
		},
		{
			name:      "ollama with explicit base URL",
			provider:  models.ProviderOllama,
			baseURL:   "http://gpu-box:11434",
			wantShape: shapeOllama,
			wantURL:   "http://gpu-box:11434/api/chat",
		},
		{
			name:      "custom provider at supplied base",
			provider:  models.ProviderCustom,
			baseURL:   "https://llm.internal.example.com/v1",
			wantShape: shapeOpenAI,
			wantURL:   "https://llm.internal.example.com/v1/chat/completions",
		},
		{
			name:      "trailing slash is trimmed before joining",
			provider:  models.ProviderMoonshot,
			baseURL:   "https://api.moonshot.cn/v1/",
			wantShape: shapeOpenAI,
			wantURL:   "https://api.moonshot.cn/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := adapter.resolve(Profile{Provider: tt.provider, BaseURL: tt.baseURL})
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}
			if ep.shape != tt.wantShape {
				t.Errorf("shape = %d, want %d", ep.shape, tt.wantShape)
			}
			if ep.url != tt.wantURL {
				t.Errorf("url = %s, want %s", ep.url, tt.wantURL)
			}
		})
	}
}

func TestAdapter_Resolve_CustomWithoutBaseURL(t *testing.T) {
	adapter := newTestAdapter()

	_, err := adapter.resolve(Profile{Provider: models.ProviderCustom})
	if err == nil {
		t.Fatal("Expected error for custom provider without base URL")
	}
	if err.Kind != KindUnknown {
		t.Errorf("Kind = %s, want %s", err.Kind, KindUnknown)
	}
}

func TestDefaultBaseURLs_CoversAllHostedProviders(t *testing.T) {
	defaults := defaultBaseURLs("http://localhost:11434")

	hosted := []models.Provider{
		models.ProviderOpenAI,
		models.ProviderDeepSeek,
		models.ProviderAlibabaQwen,
		models.ProviderAlibabaQwenLegacy,
		models.ProviderZhipuAI,
		models.ProviderMoonshot,
		models.ProviderOllama,
	}
	for _, p := range hosted {
		if defaults[p] == "" {
			t.Errorf("No default base URL for provider %s", p)
		}
	}

	if _, ok := defaults[models.ProviderCustom]; ok {
		t.Error("Custom provider must not have a default base URL")
	}
}
