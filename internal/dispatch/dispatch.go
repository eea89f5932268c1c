package dispatch

import (
	"errors"
	"regexp"
	"time"
)

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusRinging   Status = "ringing"
	StatusConnected Status = "connected"
	StatusEnded     Status = "ended"
	StatusError     Status = "error"
)

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number format")
	ErrDispatchFailed     = errors.New("call dispatch failed")
	ErrDispatchNotFound   = errors.New("call not found")
	ErrDuplicateDispatch  = errors.New("dispatch id already registered")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// E.164: leading +, country code 1-9, up to 15 digits total.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// Dispatch is one server-tracked outbound call attempt.
type Dispatch struct {
	DispatchID  string
	PhoneNumber string
	RoomName    string
	Status      Status
	StartedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusError
}

// rank orders the monotonic happy path. Error is reachable from any
// non-terminal state and ranked above ended so nothing follows it.
func (s Status) rank() int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusRinging:
		return 1
	case StatusConnected:
		return 2
	case StatusEnded:
		return 3
	case StatusError:
		return 4
	}
	return -1
}
