package ai

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// EmbeddingTokenLimit is the maximum input length accepted by the supported
// embedding models.
const EmbeddingTokenLimit = 8191

// TruncateForEmbedding trims text to fit the embedding model's token limit.
// It uses the o200k_base tokenizer when available and falls back to a
// 4-characters-per-token estimate when the encoding cannot be loaded.
// Truncation is always logged.
func TruncateForEmbedding(text string) string {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		maxChars := EmbeddingTokenLimit * 4
		if len(text) <= maxChars {
			return text
		}
		logger.Warn("[AI] Truncating embedding input (char heuristic)",
			"chars", len(text), "max_chars", maxChars)
		return text[:maxChars]
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= EmbeddingTokenLimit {
		return text
	}

	truncated := enc.Decode(tokens[:EmbeddingTokenLimit])
	logger.Warn("[AI] Truncating embedding input",
		"tokens", len(tokens), "max_tokens", EmbeddingTokenLimit)
	return truncated
}
