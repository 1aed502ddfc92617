package esg

import "errors"

var (
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrInvalidClassification = errors.New("invalid classification")
)
