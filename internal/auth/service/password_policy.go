package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/AlibekovAA/examination-system/internal/common/constants"
)

type PasswordPolicy struct {
	MinLength              int
	RequireNonAlphanumeric bool
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:              constants.PasswordMinLength,
		RequireNonAlphanumeric: true,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
	}
}

// Validate checks every rule and reports all violations in a single
// WEAK_CREDENTIAL error, comma separated.
func (p PasswordPolicy) Validate(password string) error {
	var (
		hasDigit, hasLower, hasUpper, hasSymbol bool
		length                                  int
	)
	for _, r := range password {
		length++
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	var violations []string
	if length < p.MinLength {
		violations = append(violations, fmt.Sprintf("Passwords must be at least %d characters.", p.MinLength))
	}
	if p.RequireNonAlphanumeric && !hasSymbol {
		violations = append(violations, "Passwords must have at least one non alphanumeric character.")
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, "Passwords must have at least one digit ('0'-'9').")
	}
	if p.RequireLowercase && !hasLower {
		violations = append(violations, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if p.RequireUppercase && !hasUpper {
		violations = append(violations, "Passwords must have at least one uppercase ('A'-'Z').")
	}

	if len(violations) == 0 {
		return nil
	}
	return ErrWeakCredential.WithMessage(strings.Join(violations, ","))
}
