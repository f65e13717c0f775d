package speech

import "strings"

// openAIVoices are the voices accepted by the OpenAI speech endpoint.
var openAIVoices = map[string]struct{}{
	"alloy":   {},
	"ash":     {},
	"ballad":  {},
	"coral":   {},
	"echo":    {},
	"fable":   {},
	"nova":    {},
	"onyx":    {},
	"sage":    {},
	"shimmer": {},
	"verse":   {},
}

// resolveOpenAIVoice keeps requested when OpenAI knows it, otherwise fallback.
func resolveOpenAIVoice(requested, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(requested))
	if _, ok := openAIVoices[normalized]; ok {
		return normalized
	}
	return fallback
}

// resolveVolcengineVoice 仅接受火山引擎音色 ID，例如 BV001_streaming 或 en_male_glen_emo_v2_mars_bigtts。
func resolveVolcengineVoice(requested, fallback string) string {
	trimmed := strings.TrimSpace(requested)
	if trimmed == "" {
		return fallback
	}
	if _, ok := openAIVoices[strings.ToLower(trimmed)]; ok {
		return fallback
	}
	if strings.HasPrefix(trimmed, "BV") || strings.Contains(trimmed, "_") {
		return trimmed
	}
	return fallback
}
