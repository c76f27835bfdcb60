package fetch

import "errors"

var (
	// ErrUnsupportedSource indicates no fetcher is registered for a source type.
	ErrUnsupportedSource = errors.New("unsupported source type")

	// ErrFetchFailed indicates the source could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrUnsupportedContentType indicates the response is not text content.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrInvalidLocator indicates a malformed URL or file name.
	ErrInvalidLocator = errors.New("invalid source locator")
)
