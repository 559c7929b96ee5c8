package service

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

const confirmEmailPath = "/account/ConfirmEmail"

// RequestOrigin is the scheme and host the registration request arrived on;
// confirmation links point back at it.
type RequestOrigin struct {
	Scheme string
	Host   string
}

func EncodeConfirmationCode(token string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(token))
}

// DecodeConfirmationCode accepts padded and unpadded base64url.
func DecodeConfirmationCode(code string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(code, "="))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func BuildConfirmationLink(origin RequestOrigin, email, code string) string {
	scheme := origin.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s?email=%s&code=%s",
		scheme,
		origin.Host,
		confirmEmailPath,
		url.QueryEscape(email),
		url.QueryEscape(code),
	)
}
