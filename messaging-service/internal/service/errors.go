package service

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by this package wraps one of these;
// handlers map them with errors.Is.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
)

var (
	ErrSelfConversation     = fmt.Errorf("%w: cannot start a conversation with yourself", ErrInvalidRequest)
	ErrParticipantCount     = fmt.Errorf("%w: exactly one participant id is required", ErrInvalidRequest)
	ErrEmptyContent         = fmt.Errorf("%w: message content must not be empty", ErrInvalidRequest)
	ErrContentTooLong       = fmt.Errorf("%w: message content is too long", ErrInvalidRequest)
	ErrMissingConversation  = fmt.Errorf("%w: conversation id is required", ErrInvalidRequest)
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("%w: conversation not found", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification not found", ErrNotFound)
	ErrNotParticipant       = fmt.Errorf("%w: you are not a participant of this conversation", ErrForbidden)
	ErrRoleNotAllowed       = fmt.Errorf("%w: you are not allowed to converse with this user", ErrForbidden)
	ErrReceiverNotAllowed   = fmt.Errorf("%w: you are not allowed to message this receiver", ErrForbidden)
)

// internal wraps a persistence or transport failure. The cause stays
// available to errors.Is/As and logs, but handlers only show ErrInternal.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
