package llm

import (
	"strings"

	"github.com/WriterGao/CoreMind/models"
)

// wireShape selects how a request body is built and how the matching
// response is parsed. The same shape drives both directions.
type wireShape int

const (
	shapeOpenAI wireShape = iota // Chat Completions: {"model","messages",...}
	shapeQwenNative              // DashScope text-generation: {"model","input":{"messages":[...]},...}
	shapeOllama                  // Ollama /api/chat: {"model","messages","options":{...}}
)

// endpoint is a fully resolved dispatch decision
type endpoint struct {
	shape wireShape
	url   string
}

// compatibleModeMarker is the path segment DashScope uses for its
// OpenAI-compatible surface
const compatibleModeMarker = "compatible-mode"

// qwenNativePath is DashScope's original text-generation endpoint path
const qwenNativePath = "/api/v1/services/aigc/text-generation/generation"

// defaultBaseURLs maps each provider kind to the base URL used when a
// config carries none. Built once at adapter construction; the Ollama
// entry comes from server configuration.
func defaultBaseURLs(ollamaBaseURL string) map[models.Provider]string {
	return map[models.Provider]string{
		models.ProviderOpenAI:            "https://api.openai.com/v1",
		models.ProviderDeepSeek:          "https://api.deepseek.com/v1",
		models.ProviderAlibabaQwen:       "https://dashscope.aliyuncs.com/compatible-mode/v1",
		models.ProviderAlibabaQwenLegacy: "https://dashscope.aliyuncs.com",
		models.ProviderZhipuAI:           "https://open.bigmodel.cn/api/paas/v4",
		models.ProviderMoonshot:          "https://api.moonshot.cn/v1",
		models.ProviderOllama:            ollamaBaseURL,
	}
}

// resolve turns a profile into a concrete endpoint. Rules are priority
// ordered: a compatible-mode base URL always selects the OpenAI shape, even
// for the legacy kind, because DashScope exposes both surfaces and the URL
// is the stronger signal of which one the user configured.
func (a *Adapter) resolve(p Profile) (endpoint, *Error) {
	base := strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")

	// Rule 1: explicit compatible-mode URL
	if base != "" && strings.Contains(base, compatibleModeMarker) {
		return endpoint{shape: shapeOpenAI, url: base + "/chat/completions"}, nil
	}

	// Rule 2: legacy/native kind
	if p.Provider == models.ProviderAlibabaQwenLegacy {
		if base == "" {
			base = strings.TrimRight(a.defaults[models.ProviderAlibabaQwenLegacy], "/")
		}
		if !strings.HasSuffix(base, "/generation") {
			base += qwenNativePath
		}
		return endpoint{shape: shapeQwenNative, url: base}, nil
	}

	// Ollama speaks its own chat shape regardless of base URL presence
	if p.Provider == models.ProviderOllama {
		if base == "" {
			base = strings.TrimRight(a.defaults[models.ProviderOllama], "/")
		}
		return endpoint{shape: shapeOllama, url: base + "/api/chat"}, nil
	}

	// Rule 3: no base URL, fall back to the per-kind default
	if base == "" {
		def, ok := a.defaults[p.Provider]
		if !ok || def == "" {
			return endpoint{}, newError(KindUnknown, 0,
				"provider "+string(p.Provider)+" requires an explicit base URL", "", nil)
		}
		return endpoint{shape: shapeOpenAI, url: strings.TrimRight(def, "/") + "/chat/completions"}, nil
	}

	// Rule 4: self-hosted/custom and everything else, OpenAI shape at the
	// supplied base
	return endpoint{shape: shapeOpenAI, url: base + "/chat/completions"}, nil
}
