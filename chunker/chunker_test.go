package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	s := NewSplitter()

	assert.Nil(t, s.Split("", "title"))
	assert.Nil(t, s.Split("   \n\t  \n", "title"), "whitespace-only input yields no chunks")
}

func TestSplit_SmallInput_SingleChunk(t *testing.T) {
	s := NewSplitter()

	chunks := s.Split("We ship worldwide.", "Shipping")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "We ship worldwide.", chunks[0].Text)
	assert.Equal(t, "Shipping", chunks[0].Metadata["title"])
	assert.NotZero(t, chunks[0].Hash)
}

func TestSplit_Deterministic(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("Returns are accepted within 30 days. Items must be unused. ", 80)

	first := s.Split(text, "Returns")
	second := s.Split(text, "Returns")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Hash, second[i].Hash, "chunk %d hash must be stable", i)
	}
}

func TestSplit_RespectsMaxSize(t *testing.T) {
	s := NewSplitter(WithMaxChunkSize(200), WithMinChunkSize(50))
	text := strings.Repeat("This sentence is about twenty characters. ", 50)

	chunks := s.Split(text, "")
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 200, "chunk %d exceeds max size", i)
		assert.Equal(t, i, chunk.Index, "ordinals must be contiguous")
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	s := NewSplitter(WithMaxChunkSize(500), WithMinChunkSize(10))
	text := "First paragraph about shipping policies.\n\nSecond paragraph about returns."

	chunks := s.Split(text, "")
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph about shipping policies.", chunks[0].Text)
	assert.Equal(t, "Second paragraph about returns.", chunks[1].Text)
}

func TestSplit_MergesShortParagraphs(t *testing.T) {
	// Paragraphs below the soft minimum accumulate into one chunk.
	s := NewSplitter(WithMaxChunkSize(500), WithMinChunkSize(400))
	text := "Short one.\n\nShort two.\n\nShort three."

	chunks := s.Split(text, "")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short one. Short two. Short three.", chunks[0].Text)
}

func TestSplit_OversizedSentence_HardSplit(t *testing.T) {
	s := NewSplitter(WithMaxChunkSize(100), WithMinChunkSize(20))
	text := strings.Repeat("word ", 100) // one 500-byte "sentence", no punctuation

	chunks := s.Split(text, "")
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 100)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestSplit_UnbrokenRun_MidWordLastResort(t *testing.T) {
	s := NewSplitter(WithMaxChunkSize(64), WithMinChunkSize(16))
	text := strings.Repeat("x", 300) // no spaces at all

	chunks := s.Split(text, "")
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 64)
		total += len(chunk.Text)
	}
	assert.Equal(t, 300, total, "no text may be lost")
}

func TestSplit_NoTitle_NoMetadata(t *testing.T) {
	s := NewSplitter()

	chunks := s.Split("Some content here.", "")
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].Metadata)
}

func TestSplit_HashChangesWithText(t *testing.T) {
	s := NewSplitter()

	a := s.Split("Orders ship within two days.", "")
	b := s.Split("Orders ship within three days.", "")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].Hash, b[0].Hash)
}
