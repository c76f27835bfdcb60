package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/answerdesk/answerdesk/core"
)

// DocumentFetcher reads uploaded documents from a per-chatbot storage
// directory. The locator is the stored file name.
type DocumentFetcher struct {
	root   string
	logger *slog.Logger
}

// NewDocumentFetcher creates a document fetcher rooted at dir.
func NewDocumentFetcher(dir string) *DocumentFetcher {
	return &DocumentFetcher{
		root:   dir,
		logger: slog.Default().With("component", "document-fetcher"),
	}
}

// Fetch reads the document named by the source locator.
// Locators are treated as bare file names; path traversal is rejected.
func (f *DocumentFetcher) Fetch(ctx context.Context, source core.SourceRef) (*Content, error) {
	name := source.Locator
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocator, name)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(f.root, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	ext := strings.ToLower(filepath.Ext(name))
	title := strings.TrimSuffix(name, filepath.Ext(name))

	switch ext {
	case ".html", ".htm":
		htmlTitle, text := ExtractHTML(string(data))
		if htmlTitle != "" {
			title = htmlTitle
		}
		return &Content{Text: text, Title: title}, nil
	case ".txt", ".md", ".markdown", "":
		return &Content{Text: strings.TrimSpace(string(data)), Title: title}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, ext)
	}
}
