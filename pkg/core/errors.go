package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrDecode             = errors.New("document decode failed")
	ErrSubscription       = errors.New("subscription failed")
	ErrPositionOutOfRange = errors.New("position hint out of range")
	ErrNotFound           = errors.New("document not found")
	ErrUnsupportedQuery   = errors.New("query not supported by this source")
)

// SubscriptionError reports a fault delivered by the source instead of a batch.
type SubscriptionError struct {
	Page int
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription for page %d: %v", e.Page, e.Err)
}

func (e *SubscriptionError) Unwrap() []error {
	return []error{ErrSubscription, e.Err}
}

// IndexError reports a read outside the current view.
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// DecodeError reports a document that could not be converted to the typed schema.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode document %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
