package fetcher

import "errors"

var (
	// ErrStatusNotOK is returned when http response had status different than 200 OK.
	ErrStatusNotOK = errors.New("response status is not 200 OK")
	// ErrContentTypeNotSupported is returned when response is not an image.
	ErrContentTypeNotSupported = errors.New("response content type not supported")
	// ErrTooLarge is returned when response body exceeds the size limit.
	ErrTooLarge = errors.New("response body too large")
)
