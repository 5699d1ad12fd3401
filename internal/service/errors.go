package service

import "net/http"

// Error is a request-local failure with the HTTP status and the exact
// message the API contract expects.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUsedUsername    = &Error{http.StatusBadRequest, "Used Username"}
	ErrUsedEmail       = &Error{http.StatusBadRequest, "Used Email"}
	ErrUsedPhoneNumber = &Error{http.StatusBadRequest, "Used Phone Number"}

	ErrOtpNotFound  = &Error{http.StatusBadRequest, "OTP Not Found"}
	ErrIncorrectOtp = &Error{http.StatusBadRequest, "Incorrect OTP"}
	ErrOtpExpired   = &Error{http.StatusBadRequest, "OTP Expired"}

	ErrInvalidCredentials = &Error{http.StatusUnauthorized, "Invalid Credentials"}

	ErrUserNotFound     = &Error{http.StatusBadRequest, "User Not Found"}
	ErrWrongEmail       = &Error{http.StatusBadRequest, "Wrong Email"}
	ErrWrongPhoneNumber = &Error{http.StatusBadRequest, "Wrong Phone Number"}
	ErrWrongPassword    = &Error{http.StatusBadRequest, "Wrong Password"}
)
