package resolve

import (
	"fmt"
	"strings"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

// buildContext renders retrieved chunks into the knowledge context block
// of a completion request. Every chunk is tagged with its source locator
// so the model can ground its answer.
//
// The result is bounded by maxChars. When the matches exceed the budget,
// each chunk gets an even share rather than dropping the tail: a
// truncated slice of every source beats a full copy of one.
func buildContext(matches []*storage.ChunkMatch, maxChars int) string {
	if len(matches) == 0 {
		return ""
	}

	total := 0
	for _, match := range matches {
		total += len(match.Chunk.Text)
	}

	perChunk := 0
	if total > maxChars {
		perChunk = maxChars / len(matches)
		if perChunk < 1 {
			perChunk = 1
		}
	}

	var sb strings.Builder
	for i, match := range matches {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		text := match.Chunk.Text
		if perChunk > 0 && len(text) > perChunk {
			text = truncateAtSpace(text, perChunk)
		}
		fmt.Fprintf(&sb, "[source: %s]\n%s", match.Chunk.Source.Locator, text)
	}
	return sb.String()
}

// buildFallbackContext concatenates a chatbot's raw stored content when
// retrieval produced no ranked matches. The budget is split evenly
// across sources so every source contributes something, and the result
// is non-empty whenever any chunk text exists.
func buildFallbackContext(chunks []*core.KnowledgeChunk, maxChars int) string {
	if len(chunks) == 0 {
		return ""
	}

	// Group chunk text by source, preserving first-seen source order.
	var order []string
	texts := make(map[string][]string)
	for _, chunk := range chunks {
		locator := chunk.Source.Locator
		if _, seen := texts[locator]; !seen {
			order = append(order, locator)
		}
		texts[locator] = append(texts[locator], chunk.Text)
	}

	perSource := maxChars / len(order)
	if perSource < 1 {
		perSource = 1
	}

	var sb strings.Builder
	for i, locator := range order {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		joined := strings.Join(texts[locator], "\n")
		if len(joined) > perSource {
			joined = truncateAtSpace(joined, perSource)
		}
		fmt.Fprintf(&sb, "[source: %s]\n%s", locator, joined)
	}
	return sb.String()
}

// truncateAtSpace cuts text to at most max bytes, preferring the last
// space before the cut so words stay whole.
func truncateAtSpace(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := strings.LastIndex(text[:max], " ")
	if cut <= 0 {
		cut = max
	}
	return strings.TrimRight(text[:cut], " ")
}
