package utils

import (
	"strconv"
	"strings"
)

// MaskToken shortens a bearer credential for safe logging.
// Example: "eyJhbGciOiJIUzI1NiJ9.eyJ3YWxsZXQ..." -> "eyJhbG...(154)"
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:6] + "...(" + strconv.Itoa(len(token)) + ")"
}
