package models

import (
	"errors"
	"fmt"
)

// FailureReason is one entry of the discovery error taxonomy
type FailureReason string

const (
	ReasonNoListing          FailureReason = "NO_LISTING"
	ReasonExtractionFailed   FailureReason = "EXTRACTION_FAILED"
	ReasonNoPriceFound       FailureReason = "NO_PRICE_FOUND"
	ReasonRateUnavailable    FailureReason = "RATE_UNAVAILABLE"
	ReasonHistoryUnavailable FailureReason = "HISTORY_UNAVAILABLE"
)

// Sentinels for errors.Is checks against a *Failure
var (
	ErrNoListing          = errors.New("no listing found")
	ErrExtractionFailed   = errors.New("price extraction failed")
	ErrNoPriceFound       = errors.New("no price found")
	ErrRateUnavailable    = errors.New("exchange rate unavailable")
	ErrHistoryUnavailable = errors.New("price history unavailable")
)

var sentinels = map[FailureReason]error{
	ReasonNoListing:          ErrNoListing,
	ReasonExtractionFailed:   ErrExtractionFailed,
	ReasonNoPriceFound:       ErrNoPriceFound,
	ReasonRateUnavailable:    ErrRateUnavailable,
	ReasonHistoryUnavailable: ErrHistoryUnavailable,
}

// Failure is the structured failure returned by discovery components
type Failure struct {
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail"`
	Err    error         `json:"-"`
}

// NewFailure builds a failure with an optional underlying cause
func NewFailure(reason FailureReason, err error, format string, args ...interface{}) *Failure {
	return &Failure{
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Reason, f.Detail, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel for the failure's reason
func (f *Failure) Is(target error) bool {
	return sentinels[f.Reason] == target
}

// AsFailure extracts a *Failure from an error chain
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
