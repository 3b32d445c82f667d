package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenUserID returns a new opaque user identifier.
func GenUserID() string { return "u_" + uuid.NewString() }

// GenConvID returns a new opaque conversation identifier.
func GenConvID() string { return "c_" + uuid.NewString() }

// GenSessionID returns a new opaque session identifier.
func GenSessionID() string { return "s_" + uuid.NewString() }

// NormalizeUsername lowercases and trims a username for index lookups.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
