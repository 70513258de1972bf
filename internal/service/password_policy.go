package service

import (
	"fmt"
	"unicode"

	"github.com/snipero7/qr24-sub000/internal/config"
)

type passwordPolicyError struct {
	rule    string
	message string
}

func (e passwordPolicyError) Error() string {
	return ErrWeakPassword.Error() + ": " + e.message
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return passwordPolicyError{rule: "min_length", message: fmt.Sprintf("at least %d characters", policy.MinLength)}
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}
	if policy.RequireLetter && !hasLetter {
		return passwordPolicyError{rule: "require_letter", message: "must contain a letter"}
	}
	if policy.RequireNumber && !hasNumber {
		return passwordPolicyError{rule: "require_number", message: "must contain a number"}
	}
	return nil
}
