package client

import "errors"

var (
	ErrNetwork = errors.New("network error")
	ErrHTTP    = errors.New("http error")
	ErrParse   = errors.New("malformed response")
)
