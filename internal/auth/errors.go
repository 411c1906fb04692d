package auth

import (
	"errors"
	"fmt"
)

// Code categorizes rejections.
type Code string

const (
	// CodeNoCreate: no m.room.create event in the state the event is checked against.
	CodeNoCreate Code = "NO_CREATE"

	// CodeNotJoined: the sender (or an authorising user) is not joined.
	CodeNotJoined Code = "NOT_JOINED"

	// CodeInsufficientPower: the sender's power level is too low.
	CodeInsufficientPower Code = "INSUFFICIENT_POWER"

	// CodeMalformedContent: content cannot be read as its type requires.
	CodeMalformedContent Code = "MALFORMED_CONTENT"

	// CodeBanned: the target or sender is banned.
	CodeBanned Code = "BANNED"

	// CodeJoinRule: the join rule or membership transition forbids the change.
	CodeJoinRule Code = "JOIN_RULE"

	// CodeInvalidStateKey: the state key is missing or names someone else.
	CodeInvalidStateKey Code = "INVALID_STATE_KEY"

	// CodeInvalidAuthEvents: the listed auth events are missing or unsuitable.
	CodeInvalidAuthEvents Code = "INVALID_AUTH_EVENTS"

	// CodeFederationDenied: the room does not federate with the sender's server.
	CodeFederationDenied Code = "FEDERATION_DENIED"

	// CodeUnknownMembership: the membership value is not understood.
	CodeUnknownMembership Code = "UNKNOWN_MEMBERSHIP"
)

// Rejection is a negative authorization outcome. It is data, not a failure:
// resolution records it and moves on.
type Rejection struct {
	// EventID identifies the rejected event.
	EventID string

	// Code identifies the rule that rejected it.
	Code Code

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s (event=%s)", r.Code, r.Message, r.EventID)
}

// IsRejection returns true if err is a Rejection.
// Uses errors.As to handle wrapped errors.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// CodeOf returns the rejection code of err, or "" if err is not a Rejection.
func CodeOf(err error) Code {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}

func reject(eventID string, code Code, format string, args ...any) *Rejection {
	return &Rejection{EventID: eventID, Code: code, Message: fmt.Sprintf(format, args...)}
}
