package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
)

// Common Gemini API errors.
var (
	// ErrUnauthorized indicates an invalid or missing API key.
	ErrUnauthorized = errors.New("gemini: unauthorised (invalid API key)")

	// ErrRateLimited indicates the API rate limit or quota was exceeded.
	ErrRateLimited = errors.New("gemini: rate limit exceeded")
)

// classify tags API errors with the package sentinels, keeping the original
// error in the chain.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	default:
		return err
	}
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}

// RetryAfter reports whether err is a rate limit error and, if the server
// sent one, the Retry-After delay in seconds.
func RetryAfter(err error) (bool, int) {
	if !IsRateLimited(err) {
		return false, 0
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Header != nil {
		if secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After")); convErr == nil {
			return true, secs
		}
	}
	return true, 0
}
