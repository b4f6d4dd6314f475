package models

import "errors"

// ErrNoContent means no usable page text is available. It is surfaced to
// the user as a plain message and never retried.
var ErrNoContent = errors.New("no content to analyze")
