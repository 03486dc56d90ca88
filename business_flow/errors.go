// Package businessflow contains the core business logic for broadcast relay and reaction correlation
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Member-related errors
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberInactive      = errors.New("member is inactive")
	ErrMemberNotAdmin      = errors.New("member is not an admin")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrSenderNotRecognized = errors.New("sender is not a group member")

	// Broadcast-related errors
	ErrBroadcastNotFound   = errors.New("broadcast message not found")
	ErrEmptyBroadcastBody  = errors.New("broadcast body is empty")
	ErrNoActiveRecipients  = errors.New("no active recipients")
	ErrBroadcastInProgress = errors.New("broadcast is already being processed")

	// Reaction-related errors
	ErrNoReactionMatch      = errors.New("text does not match a reaction pattern")
	ErrReactionUnresolved   = errors.New("reaction target could not be resolved")
	ErrUnknownReactionToken = errors.New("unknown reaction token")
	ErrDuplicateReaction    = errors.New("duplicate reaction")

	// Media-related errors
	ErrMediaDownloadFailed = errors.New("media download failed")
	ErrMediaUploadFailed   = errors.New("media upload failed")
	ErrMediaTooLarge       = errors.New("media exceeds size limit")

	// Command-related errors
	ErrInvalidCommand     = errors.New("invalid admin command")
	ErrCommandPhoneNeeded = errors.New("command requires a phone number")

	// Summary-related errors
	ErrNoPendingReactions = errors.New("no pending reactions to summarize")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsMemberNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound)
}

func IsMemberInactive(err error) bool {
	return errors.Is(err, ErrMemberInactive)
}

func IsMemberNotAdmin(err error) bool {
	return errors.Is(err, ErrMemberNotAdmin)
}

func IsMemberAlreadyExists(err error) bool {
	return errors.Is(err, ErrMemberAlreadyExists)
}

func IsSenderNotRecognized(err error) bool {
	return errors.Is(err, ErrSenderNotRecognized)
}

func IsBroadcastNotFound(err error) bool {
	return errors.Is(err, ErrBroadcastNotFound)
}

func IsEmptyBroadcastBody(err error) bool {
	return errors.Is(err, ErrEmptyBroadcastBody)
}

func IsNoActiveRecipients(err error) bool {
	return errors.Is(err, ErrNoActiveRecipients)
}

func IsNoReactionMatch(err error) bool {
	return errors.Is(err, ErrNoReactionMatch)
}

func IsReactionUnresolved(err error) bool {
	return errors.Is(err, ErrReactionUnresolved)
}

func IsDuplicateReaction(err error) bool {
	return errors.Is(err, ErrDuplicateReaction)
}

func IsMediaTooLarge(err error) bool {
	return errors.Is(err, ErrMediaTooLarge)
}

func IsInvalidCommand(err error) bool {
	return errors.Is(err, ErrInvalidCommand)
}

func IsNoPendingReactions(err error) bool {
	return errors.Is(err, ErrNoPendingReactions)
}
