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


package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/answerdesk/answerdesk/core"
	"golang.org/x/net/html"
)

const (
	defaultMaxBodyBytes = 4 << 20 // 4 MiB of page text is plenty for a support page
	defaultUserAgent    = "answerdesk-crawler/1.0"
)

// WebsiteFetcher retrieves a web page and extracts its title and visible text.
type WebsiteFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    *slog.Logger
}

// WebsiteOption configures a WebsiteFetcher.
type WebsiteOption func(*WebsiteFetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) WebsiteOption {
	return func(f *WebsiteFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) WebsiteOption {
	return func(f *WebsiteFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithUserAgent sets the crawler's User-Agent header.
func WithUserAgent(ua string) WebsiteOption {
	return func(f *WebsiteFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewWebsiteFetcher creates a website fetcher.
// The default client timeout is generous because crawling runs inside
// background tasks, not on the live answer path.
func NewWebsiteFetcher(opts ...WebsiteOption) *WebsiteFetcher {
	f := &WebsiteFetcher{
		client:    &http.Client{Timeout: 60 * time.Second},
		maxBytes:  defaultMaxBodyBytes,
		userAgent: defaultUserAgent,
		logger:    slog.Default().With("component", "website-fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the page at the source's URL locator.
func (f *WebsiteFetcher) Fetch(ctx context.Context, source core.SourceRef) (*Content, error) {
	u, err := url.Parse(source.Locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocator, source.Locator)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, source.Locator, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	switch {
	case strings.Contains(contentType, "text/html"), contentType == "":
		title, text := ExtractHTML(string(body))
		f.logger.Debug("fetched page", "url", source.Locator, "title", title, "chars", len(text))
		return &Content{Text: text, Title: title}, nil
	case strings.Contains(contentType, "text/plain"):
		return &Content{Text: strings.TrimSpace(string(body))}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
}

// skipElements are HTML elements whose text never belongs in the knowledge
// base. The head element is still walked so <title> can be captured.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"iframe": true, "svg": true,
}

// ExtractHTML parses an HTML document and returns its title and the visible
// text with whitespace collapsed. Parse errors degrade to the raw input,
// since net/html recovers from most malformed markup anyway.
func ExtractHTML(source string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return "", strings.TrimSpace(source)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" && title == "" {
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if skipElements[n.Data] {
				return
			}
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		// Keep paragraph structure: block elements become paragraph breaks.
		if n.Type == html.ElementNode && isBlockElement(n.Data) && sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
	}
	walk(doc)

	text = strings.TrimSpace(paragraphJoin(sb.String()))
	return title, text
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "blockquote": true, "pre": true,
}

func isBlockElement(name string) bool {
	return blockElements[name]
}

// paragraphJoin collapses runs of blank lines left by nested block elements.
func paragraphJoin(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.Join(out, "\n")
}
