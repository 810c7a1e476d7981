package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCaptionFailure signals that the image could not be described.
	ErrCaptionFailure = errors.New("caption failure")
	// ErrExtractionFailure signals that no structured query could be built from the caption.
	ErrExtractionFailure = errors.New("extraction failure")
	// ErrSearchUnavailable signals that the broad catalog fetch failed with zero usable results.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrInvalidImage signals an image that could not be downloaded or is empty.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidCriteria signals a malformed catalog query.
	ErrInvalidCriteria = errors.New("invalid search criteria")

	// ErrRateLimited signals a rate limit hit at a model provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrModelError signals a model provider failure.
	ErrModelError = errors.New("model error")
	// ErrTimeout signals an external call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrMalformedJSON signals model output that stayed unparseable after repair.
	ErrMalformedJSON = errors.New("malformed json")
)

// CatalogError is a non-2xx response from the catalog search API.
type CatalogError struct {
	StatusCode int
	Body       string
}

func (e *CatalogError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog api status %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog api status %d: %s", e.StatusCode, e.Body)
}
