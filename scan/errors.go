package scan

import "errors"

var (
	ErrEmptyIdentity     = errors.New("identity is empty")
	ErrDuplicateIdentity = errors.New("identity already exists")
	ErrNegativeQuantity  = errors.New("quantity must not be negative")
	ErrLineNotFound      = errors.New("line not found")
	ErrBoxNotFound       = errors.New("box not found")
	ErrCodeNotFound      = errors.New("code not found in box")
	ErrCapacityExceeded  = errors.New("capacity limit reached")
	ErrEmptyLedger       = errors.New("no items to submit")
	ErrSubmitPending     = errors.New("submission already in progress")
	ErrFieldBusy         = errors.New("validation in progress for this field")
	ErrSessionClosed     = errors.New("session is closed")
)
