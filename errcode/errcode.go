// Package errcode defines the stable numeric error codes every API
// boundary returns. Clients localize messages from the code alone, so a
// code's meaning must never change between releases.
package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a code for HTTP status mapping and logging.
type Kind int

const (
	KindOK Kind = iota
	KindValidation
	KindAuth
	KindConflict
	KindNotFound
	KindForbidden
	KindState
	KindRateLimited
	KindInternal
)

// Stable numeric codes. Social codes keep the values the original API
// shipped; new codes extend the same 1xxx range.
const (
	CodeOK = 1000

	// Validation / auth
	CodeBadRequest         = 1001
	CodeInvalidCredentials = 1003 // covers both unknown name and wrong password
	CodeInvalidToken       = 1004
	CodeTokenRequired      = 1005
	CodeTokenRevoked       = 1006
	CodeWrongPassword      = 1007 // current-password re-proof failed
	CodeRateLimited        = 1008

	CodeNameTaken        = 1010
	CodeNameRequired     = 1011
	CodePasswordRequired = 1012
	CodePasswordMismatch = 1013

	// Social
	CodeAlreadyFriends         = 1002
	CodePlayerNotFound         = 1014
	CodeSelfRequest            = 1015
	CodeRequestAlreadySent     = 1016
	CodeRequestAlreadyReceived = 1017
	CodeYouBlockedPlayer       = 1018
	CodeBlockedByPlayer        = 1019
	CodeRequestNotFound        = 1020
	CodeRequestAlreadyHandled  = 1021
	CodeNotRecipient           = 1022
	CodeNotInitiator           = 1023
	CodeNotFriend              = 1025
	CodeBlockNotFound          = 1026
	CodeNotYourBlock           = 1028
	CodeNotAccepted            = 1030

	// Password policy, one code per violation
	CodePasswordTooShort = 1040
	CodePasswordNoDigit  = 1041
	CodePasswordNoLower  = 1042
	CodePasswordNoUpper  = 1043
	CodePasswordNoSymbol = 1044

	// Match
	CodeMatchPlayerNotFound = 1050
	CodeInvalidMatchType    = 1051
	CodeMatchNotFound       = 1052

	CodeInternal = 1500
)

// Error is a coded error carried from a service to the boundary.
type Error struct {
	Code    int
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

var registry = map[int]*Error{}

func register(code int, kind Kind, message string) *Error {
	e := &Error{Code: code, Kind: kind, Message: message}
	registry[code] = e
	return e
}

// Sentinel errors, one per code. Services return these; handlers render
// them with HTTPStatus.
var (
	ErrBadRequest         = register(CodeBadRequest, KindValidation, "malformed request")
	ErrInvalidCredentials = register(CodeInvalidCredentials, KindAuth, "invalid credentials")
	ErrInvalidToken       = register(CodeInvalidToken, KindAuth, "invalid token")
	ErrTokenRequired      = register(CodeTokenRequired, KindAuth, "token required")
	ErrTokenRevoked       = register(CodeTokenRevoked, KindAuth, "token revoked")
	ErrWrongPassword      = register(CodeWrongPassword, KindAuth, "current password incorrect")
	ErrRateLimited        = register(CodeRateLimited, KindRateLimited, "too many requests")

	ErrNameTaken        = register(CodeNameTaken, KindConflict, "name already taken")
	ErrNameRequired     = register(CodeNameRequired, KindValidation, "name required")
	ErrPasswordRequired = register(CodePasswordRequired, KindValidation, "password required")
	ErrPasswordMismatch = register(CodePasswordMismatch, KindValidation, "passwords do not match")

	ErrAlreadyFriends         = register(CodeAlreadyFriends, KindConflict, "already friends")
	ErrPlayerNotFound         = register(CodePlayerNotFound, KindNotFound, "player not found")
	ErrSelfRequest            = register(CodeSelfRequest, KindConflict, "cannot befriend yourself")
	ErrRequestAlreadySent     = register(CodeRequestAlreadySent, KindConflict, "friend request already sent")
	ErrRequestAlreadyReceived = register(CodeRequestAlreadyReceived, KindConflict, "friend request already received from this player")
	ErrYouBlockedPlayer       = register(CodeYouBlockedPlayer, KindConflict, "you have blocked this player")
	ErrBlockedByPlayer        = register(CodeBlockedByPlayer, KindConflict, "this player has blocked you")
	ErrRequestNotFound        = register(CodeRequestNotFound, KindNotFound, "friend request not found")
	ErrRequestAlreadyHandled  = register(CodeRequestAlreadyHandled, KindState, "friend request already handled")
	ErrNotRecipient           = register(CodeNotRecipient, KindForbidden, "only the recipient can respond")
	ErrNotInitiator           = register(CodeNotInitiator, KindForbidden, "only the sender can cancel")
	ErrNotFriend              = register(CodeNotFriend, KindForbidden, "you are not a party to this friendship")
	ErrBlockNotFound          = register(CodeBlockNotFound, KindNotFound, "block not found")
	ErrNotYourBlock           = register(CodeNotYourBlock, KindForbidden, "you did not create this block")
	ErrNotAccepted            = register(CodeNotAccepted, KindState, "friendship is not accepted")

	ErrPasswordTooShort = register(CodePasswordTooShort, KindValidation, "password must be at least 8 characters")
	ErrPasswordNoDigit  = register(CodePasswordNoDigit, KindValidation, "password must contain a digit")
	ErrPasswordNoLower  = register(CodePasswordNoLower, KindValidation, "password must contain a lowercase letter")
	ErrPasswordNoUpper  = register(CodePasswordNoUpper, KindValidation, "password must contain an uppercase letter")
	ErrPasswordNoSymbol = register(CodePasswordNoSymbol, KindValidation, "password must contain a symbol")

	ErrMatchPlayerNotFound = register(CodeMatchPlayerNotFound, KindNotFound, "match player not found")
	ErrInvalidMatchType    = register(CodeInvalidMatchType, KindValidation, "invalid match type")
	ErrMatchNotFound       = register(CodeMatchNotFound, KindNotFound, "match not found")

	ErrInternal = register(CodeInternal, KindInternal, "internal error")
)

// Lookup returns the registered error for a code, or nil.
func Lookup(code int) *Error {
	return registry[code]
}

// From extracts the *Error from err, mapping unknown errors to ErrInternal.
// Store failures never leak detail to the client.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}

// HTTPStatus maps an error Kind to its HTTP status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindOK:
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindState:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
