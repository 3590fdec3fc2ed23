package web

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

func validateEmail(email string) string {
	if email == "" {
		return "Email is required."
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Enter a valid email address."
	}
	return ""
}

// validatePassword counts characters, not bytes, as the auth service does.
func validatePassword(password string) string {
	switch n := utf8.RuneCountInString(password); {
	case n == 0:
		return "Password is required."
	case n < minPasswordLength:
		return fmt.Sprintf("Password must be at least %d characters.", minPasswordLength)
	case n > maxPasswordLength:
		return fmt.Sprintf("Password must be at most %d characters.", maxPasswordLength)
	}
	return ""
}

func validateName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Name is required."
	}
	return ""
}
