package fetch

import (
	"context"
	"fmt"

	"github.com/answerdesk/answerdesk/core"
)

// Content is the extracted text of one knowledge source.
type Content struct {
	Text  string
	Title string
}

// Fetcher retrieves the raw content of a source. Implementations may be
// slow (seconds); the indexing pipeline treats a fetch as a task-level
// dependency and bounds it with the task context.
type Fetcher interface {
	Fetch(ctx context.Context, source core.SourceRef) (*Content, error)
}

// Router dispatches fetches to a type-specific fetcher.
type Router struct {
	fetchers map[core.SourceType]Fetcher
}

// NewRouter creates a router over the given per-type fetchers.
func NewRouter(fetchers map[core.SourceType]Fetcher) *Router {
	return &Router{fetchers: fetchers}
}

// Fetch delegates to the fetcher registered for the source's type.
func (r *Router) Fetch(ctx context.Context, source core.SourceRef) (*Content, error) {
	fetcher, ok := r.fetchers[source.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source.Type)
	}
	return fetcher.Fetch(ctx, source)
}
