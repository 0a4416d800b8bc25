package utils

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/payhole/payments/internal/shared/errors"
)

// ExtractBearerToken reads the credential from the Authorization header.
// The scheme is matched case-insensitively.
func ExtractBearerToken(c *gin.Context) (string, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", errors.NewUnauthorizedError("Missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.NewUnauthorizedError("Invalid Authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.NewUnauthorizedError("Invalid Authorization header format")
	}

	return token, nil
}
