package membership

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the HTTP status
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTokenMissing       = "TOKEN_MISSING"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeSessionRevoked     = "SESSION_REVOKED"
	TextCodeInvitationInvalid  = "INVITATION_INVALID_OR_EXPIRED"
	TextCodeInvitationPending  = "INVITATION_ALREADY_PENDING"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeNodeNotFound       = "NODE_NOT_FOUND"
	TextCodeInvalidNodeType    = "INVALID_NODE_TYPE"
	TextCodeInvalidRole        = "INVALID_ROLE"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeNotNodeMember      = "NOT_A_NODE_MEMBER"
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM_MUTATION"
)

// ErrInvalidCredentials is returned for both unknown identifiers and bad
// passwords so callers cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the password comparison failure, folded
// into the uniform credentials error.
var ErrMismatchedHashAndPassword = ErrInvalidCredentials

// ErrTokenMissing is returned when an operation that needs a token gets an
// empty string.
var ErrTokenMissing = errors.New("authentication token is required", errors.CategoryValidation).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned for tokens past their expiry.
var ErrTokenExpired = errors.New("the token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable or badly signed tokens.
var ErrTokenMalformed = errors.New("the token is malformed or invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrSessionRevoked is returned when a structurally valid token no longer
// has a live session row backing it.
var ErrSessionRevoked = errors.New("session has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeSessionRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrInvitationInvalid covers expired, consumed, and unknown invitation
// tokens alike.
var ErrInvitationInvalid = errors.New("invitation is invalid or expired", errors.CategoryAuth).
	WithTextCode(TextCodeInvitationInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrInvitationPending is returned when the email already holds a pending
// invitation.
var ErrInvitationPending = errors.New("a pending invitation already exists for this email", errors.CategoryConflict).
	WithTextCode(TextCodeInvitationPending).
	WithCode(errors.CodeConflict)

// ErrEmailTaken is returned when the email already belongs to a user.
var ErrEmailTaken = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrNodeNotFound is returned when an invitation or request references a
// node that does not exist.
var ErrNodeNotFound = errors.New("node not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidNodeType is returned for node types outside the closed set.
var ErrInvalidNodeType = errors.New("unknown node type", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidNodeType).
	WithCode(errors.CodeBadRequest)

// ErrInvalidRole is returned for roles outside the closed set.
var ErrInvalidRole = errors.New("unknown or invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrForbidden is the uniform authorization failure.
var ErrForbidden = errors.New("you are not allowed to perform this action", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrNotNodeMember is returned when leader reassignment targets a user that
// is not a member of the node.
var ErrNotNodeMember = errors.New("target user is not a member of this node", errors.CategoryValidation).
	WithTextCode(TextCodeNotNodeMember).
	WithCode(errors.CodeBadRequest)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError).
	WithCode(errors.CodeUnauthorized)

// ErrImmutableClaimMutation signals that a claims decorator touched a claim
// it may not modify.
var ErrImmutableClaimMutation = errors.New("immutable claim mutated", errors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(errors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation detects unique constraint conflicts across the dialects
// we validate against (sqlite, postgres).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
