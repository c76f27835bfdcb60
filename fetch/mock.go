package fetch

import (
	"context"
	"sync"

	"github.com/answerdesk/answerdesk/core"
)

// MockFetcher is a test double for Fetcher. Canned content is keyed by
// locator; unknown locators fail with ErrFetchFailed unless FetchFunc is set.
type MockFetcher struct {
	// FetchFunc is called by Fetch if set.
	FetchFunc func(ctx context.Context, source core.SourceRef) (*Content, error)

	mu        sync.Mutex
	contents  map[string]*Content
	callCount int
}

// NewMockFetcher creates a mock fetcher with no canned content.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{contents: make(map[string]*Content)}
}

// SetContent cans content for a locator.
func (m *MockFetcher) SetContent(locator string, content *Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents[locator] = content
}

// Fetch returns canned content for the locator.
func (m *MockFetcher) Fetch(ctx context.Context, source core.SourceRef) (*Content, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, source)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if content, ok := m.contents[source.Locator]; ok {
		return content, nil
	}
	return nil, ErrFetchFailed
}

// CallCount returns the number of Fetch calls.
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
