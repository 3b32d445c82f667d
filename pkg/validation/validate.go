// Package validation holds the request-level field checks shared by the
// REST handlers and the socket dispatch.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"chathub/pkg/errdefs"
	"chathub/pkg/models"
)

var (
	usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)
	langRe     = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})?$`)
)

// Username enforces the account-name rules: lowercase alphanumerics plus
// dot, underscore and dash, 3 to 32 characters, leading alphanumeric.
func Username(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return errdefs.Validationf("username is required")
	}
	if !usernameRe.MatchString(name) {
		return errdefs.Validationf("username %q is invalid", name)
	}
	if name == models.SystemSender {
		return errdefs.Validationf("username %q is reserved", name)
	}
	return nil
}

// Language checks a BCP 47 style primary tag, for example "en" or
// "pt-BR".
func Language(tag string) error {
	if tag == "" {
		return nil
	}
	if !langRe.MatchString(tag) {
		return errdefs.Validationf("language tag %q is invalid", tag)
	}
	return nil
}

// Content checks message content: non-empty after trimming, valid UTF-8
// and within the configured byte budget.
func Content(content string, maxBytes int) error {
	if strings.TrimSpace(content) == "" {
		return errdefs.Validationf("message content is empty")
	}
	if !utf8.ValidString(content) {
		return errdefs.Validationf("message content is not valid UTF-8")
	}
	if maxBytes > 0 && len(content) > maxBytes {
		return errdefs.Validationf("message content exceeds %d bytes", maxBytes)
	}
	return nil
}

// MessageType accepts the client-sendable kinds; empty means text. The
// system kind is minted server-side only and is rejected here.
func MessageType(t models.MessageType) error {
	switch t {
	case "", models.TypeText, models.TypeImage, models.TypeFile:
		return nil
	case models.TypeSystem:
		return errdefs.Validationf("message type %q is reserved", t)
	}
	return errdefs.Validationf("unknown message type %q", t)
}

// DisplayName bounds the free-form display name.
func DisplayName(name string) error {
	if utf8.RuneCountInString(name) > 64 {
		return errdefs.Validationf("display name exceeds 64 characters")
	}
	return nil
}

// GroupName bounds the optional conversation name.
func GroupName(name string) error {
	if utf8.RuneCountInString(name) > 128 {
		return errdefs.Validationf("conversation name exceeds 128 characters")
	}
	return nil
}
