package domain

import "errors"

var errMissingSpanID = errors.New("example span is missing an id")
