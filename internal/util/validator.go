package util

import (
	"fmt"
	"regexp"
	"time"

	"github.com/votranphi/heartistry-user-api/internal/models"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9]{3,15}$`)
	// gmail.com or the university suffix, same rule the API shipped with
	emailRe = regexp.MustCompile(`^(?:[a-zA-Z0-9]+@gmail\.com|[12][0-9]52[0-9]{4}@gm\.uit\.edu\.vn)$`)
	// Vietnamese numbers: 0xxxxxxxxx or +84xxxxxxxxx
	phoneRe = regexp.MustCompile(`^(?:0[0-9]{9}|\+84[0-9]{9})$`)
	// at least 8 chars with a letter, a digit and a special character
	passwordCharsRe = regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]{8,}$`)
)

// ValidateUsername checks the 3-15 alphanumeric rule.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username must be 3-15 alphanumeric characters")
	}
	return nil
}

// ValidateEmail checks the allowed mail domains.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return fmt.Errorf("email's postfix must be @gmail.com or @gm.uit.edu.vn")
	}
	return nil
}

// ValidatePhoneNumber checks for a Vietnamese phone number.
func ValidatePhoneNumber(phone string) error {
	if !phoneRe.MatchString(phone) {
		return fmt.Errorf("please enter a Vietnamese phone number")
	}
	return nil
}

// ValidatePassword enforces length plus letter/digit/special presence.
func ValidatePassword(password string) error {
	if !passwordCharsRe.MatchString(password) {
		return fmt.Errorf("password must contain at least eight characters, one letter, one number and one special character")
	}
	var hasLetter, hasDigit, hasSpecial bool
	for _, ch := range password {
		switch {
		case ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z':
			hasLetter = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must contain at least eight characters, one letter, one number and one special character")
	}
	return nil
}

// ValidateDob checks the date of birth format (YYYY-MM-DD).
func ValidateDob(dob string) error {
	if dob == "" {
		return fmt.Errorf("dob is empty")
	}
	if _, err := time.Parse("2006-01-02", dob); err != nil {
		return fmt.Errorf("invalid dob format: %w", err)
	}
	return nil
}

// ValidateGender checks the gender enum.
func ValidateGender(gender string) error {
	switch gender {
	case models.GenderMale, models.GenderFemale, models.GenderUnspecified:
		return nil
	}
	return fmt.Errorf("gender must be male, female or unspecified")
}

// ValidateRole checks the role enum.
func ValidateRole(role string) error {
	switch role {
	case models.RoleUser, models.RoleAdmin:
		return nil
	}
	return fmt.Errorf("role must be user or admin")
}
