// Copyright 2025 AnswerDesk Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"regexp"
	"strings"

	"github.com/answerdesk/answerdesk/core"
)

const (
	// DefaultMaxChunkSize bounds chunk text length in bytes.
	DefaultMaxChunkSize = 1200
	// DefaultMinChunkSize is the soft lower bound; a chunk is only closed
	// early at a paragraph/sentence boundary once it has at least this much.
	DefaultMinChunkSize = 200
)

// Splitter splits raw source text into bounded, hashable chunks.
//
// Splitting is deterministic: identical input text always yields the same
// chunk boundaries and hashes, so an unchanged source can be recognized and
// skipped during reindexing. Breaks prefer paragraph boundaries, then
// sentence boundaries; a mid-word split happens only for pathological
// unbroken runs longer than the maximum size.
type Splitter struct {
	maxSize  int
	minSize  int
	sentence *regexp.Regexp
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMaxChunkSize sets the maximum chunk size in bytes.
func WithMaxChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.maxSize = size
		}
	}
}

// WithMinChunkSize sets the soft minimum chunk size in bytes.
func WithMinChunkSize(size int) Option {
	return func(s *Splitter) {
		if size >= 0 {
			s.minSize = size
		}
	}
}

// NewSplitter creates a splitter with the default size bounds.
func NewSplitter(opts ...Option) *Splitter {
	s := &Splitter{
		maxSize:  DefaultMaxChunkSize,
		minSize:  DefaultMinChunkSize,
		sentence: regexp.MustCompile(`(?s)[^.!?]*[.!?]+["')\]]*\s*`),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.minSize > s.maxSize {
		s.minSize = s.maxSize / 2
	}
	return s
}

// Split produces the ordered chunk sequence for a source's full text.
// The title, when present, is attached to every chunk as metadata.
// Empty or whitespace-only input yields no chunks and no error; input
// shorter than the minimum size yields a single chunk.
//
// Returned chunks carry Index, Text, Hash, and Metadata; the caller fills
// in chatbot and source identity before persisting.
func (s *Splitter) Split(text, title string) []core.KnowledgeChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	var current strings.Builder

	flush := func() {
		piece := strings.TrimSpace(current.String())
		if piece != "" {
			pieces = append(pieces, piece)
		}
		current.Reset()
	}

	for _, paragraph := range splitParagraphs(text) {
		for _, unit := range s.splitUnits(paragraph) {
			if current.Len() > 0 && current.Len()+len(unit)+1 > s.maxSize {
				flush()
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(unit)
		}
		// Prefer the paragraph boundary once the chunk is big enough.
		if current.Len() >= s.minSize {
			flush()
		}
	}
	flush()

	chunks := make([]core.KnowledgeChunk, len(pieces))
	for i, piece := range pieces {
		var metadata map[string]string
		if title != "" {
			metadata = map[string]string{"title": title}
		}
		chunks[i] = core.KnowledgeChunk{
			Index:    i,
			Text:     piece,
			Hash:     core.HashText(piece),
			Metadata: metadata,
		}
	}
	return chunks
}

// splitUnits breaks a paragraph into sentence units no longer than maxSize.
func (s *Splitter) splitUnits(paragraph string) []string {
	if len(paragraph) <= s.maxSize {
		return []string{paragraph}
	}

	sentences := s.sentence.FindAllString(paragraph, -1)
	if joined := strings.Join(sentences, ""); len(joined) < len(paragraph) {
		// Trailing text without sentence-ending punctuation.
		sentences = append(sentences, paragraph[len(joined):])
	}

	var units []string
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		units = append(units, s.hardSplit(sentence)...)
	}
	return units
}

// hardSplit force-splits an oversized sentence, breaking at the last space
// before the limit when possible and mid-word only as a last resort.
func (s *Splitter) hardSplit(sentence string) []string {
	if len(sentence) <= s.maxSize {
		return []string{sentence}
	}

	var parts []string
	for len(sentence) > s.maxSize {
		cut := strings.LastIndexByte(sentence[:s.maxSize], ' ')
		if cut <= 0 {
			cut = s.maxSize
		}
		parts = append(parts, strings.TrimSpace(sentence[:cut]))
		sentence = strings.TrimSpace(sentence[cut:])
	}
	if sentence != "" {
		parts = append(parts, sentence)
	}
	return parts
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// splitParagraphs splits text on blank lines, dropping empty paragraphs.
func splitParagraphs(text string) []string {
	raw := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(strings.Join(strings.Fields(p), " "))
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
