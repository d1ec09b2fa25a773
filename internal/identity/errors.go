package identity

import "errors"

// Error is an identity failure carrying a provider-style code such as
// "auth/wrong-password".
type Error struct {
	Code string
}

func (e *Error) Error() string { return e.Code }

var (
	ErrInvalidEmail     = &Error{Code: "auth/invalid-email"}
	ErrWeakPassword     = &Error{Code: "auth/weak-password"}
	ErrEmailInUse       = &Error{Code: "auth/email-already-in-use"}
	ErrUserNotFound     = &Error{Code: "auth/user-not-found"}
	ErrWrongPassword    = &Error{Code: "auth/wrong-password"}
	ErrTooManyRequests  = &Error{Code: "auth/too-many-requests"}
	ErrNetworkFailure   = &Error{Code: "auth/network-request-failed"}
	ErrInvalidAPIKey    = &Error{Code: "auth/invalid-api-key"}
	ErrInvalidToken     = &Error{Code: "auth/invalid-token"}
	ErrTokenInvalidated = &Error{Code: "auth/token-invalidated"}
)

var friendly = map[string]string{
	ErrInvalidEmail.Code:     "Please enter a valid email address.",
	ErrWeakPassword.Code:     "Password is too weak. Use at least 6 characters.",
	ErrEmailInUse.Code:       "This email is already registered. Try logging in instead.",
	ErrUserNotFound.Code:     "Account not found. Please check your email or register.",
	ErrWrongPassword.Code:    "Incorrect password. Please try again.",
	ErrTooManyRequests.Code:  "Too many attempts. Please try again later.",
	ErrNetworkFailure.Code:   "Network error. Please check your connection.",
	ErrInvalidAPIKey.Code:    "Authentication configuration error. Please contact support.",
	ErrInvalidToken.Code:     "Your session is invalid. Please log in again.",
	ErrTokenInvalidated.Code: "Your session has ended. Please log in again.",
}

// Code returns the provider code wrapped in err, or "" when err is not an identity error.
func Code(err error) string {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Code
	}
	return ""
}

// FriendlyMessage maps an error to text suitable for showing the user.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := friendly[Code(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again later."
}
