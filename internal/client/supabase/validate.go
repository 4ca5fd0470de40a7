package supabase

import (
	"errors"
	"strings"
)

// MinPasswordLength is the shortest password accepted by the sign-in forms.
const MinPasswordLength = 6

var (
	ErrInvalidEmail      = errors.New("please enter a valid email address")
	ErrPasswordTooShort  = errors.New("password must be at least 6 characters long")
	ErrFullNameRequired  = errors.New("please enter your full name")
	ErrPasswordsMismatch = errors.New("passwords do not match")
)

// SignUpForm is what the sign-up prompt collects.
type SignUpForm struct {
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
}

func ValidateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateSignIn(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func ValidateSignUp(f SignUpForm) error {
	if err := ValidateSignIn(f.Email, f.Password); err != nil {
		return err
	}
	if strings.TrimSpace(f.FullName) == "" {
		return ErrFullNameRequired
	}
	if f.Password != f.ConfirmPassword {
		return ErrPasswordsMismatch
	}
	return nil
}
