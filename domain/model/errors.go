package model

import "errors"

// ErrMalformedInput is returned when source text lacks a header line or a data row
var ErrMalformedInput = errors.New("datalab: malformed input")
