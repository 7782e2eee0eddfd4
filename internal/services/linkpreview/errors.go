package linkpreview

import "errors"

// Terminal failures of a preview request. None of them are retried here.
var (
	ErrFeatureDisabled = errors.New("link previews are disabled")
	ErrFetchFailure    = errors.New("link preview fetch failed")
	ErrInvalidPreview  = errors.New("invalid link preview")
	ErrNoPreview       = errors.New("no link preview available")
)

// Causes wrapped inside the categories above.
var (
	ErrURLNotPermitted      = errors.New("url not permitted for link previews")
	ErrRedirectNotPermitted = errors.New("redirect target not permitted for link previews")
	ErrTooManyRedirects     = errors.New("too many redirects")
	ErrHTTPStatus           = errors.New("unexpected HTTP status")
	ErrResponseTooLarge     = errors.New("response exceeds size limit")
	ErrEmptyResponse        = errors.New("empty response body")
	ErrUndecodableText      = errors.New("response body is not valid text")
)
