package ai

import (
	"strings"
	"testing"
)

func TestTruncateForEmbedding(t *testing.T) {
	t.Run("short input unchanged", func(t *testing.T) {
		in := "a short piece of text"
		if got := TruncateForEmbedding(in); got != in {
			t.Fatalf("TruncateForEmbedding(%q) = %q, want unchanged", in, got)
		}
	})

	t.Run("oversized input shrinks", func(t *testing.T) {
		in := strings.Repeat("knowledge graph retrieval ", 20000)
		got := TruncateForEmbedding(in)
		if len(got) >= len(in) {
			t.Fatalf("TruncateForEmbedding did not shrink input: got %d chars, input %d", len(got), len(in))
		}
		if !strings.HasPrefix(in, got) {
			t.Fatalf("truncated output is not a prefix of the input")
		}
	})
}
