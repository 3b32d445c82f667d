// Package translate annotates outbound messages with a per-recipient
// translation. The shipped implementation is a demo placeholder that
// wraps the original content; a real engine plugs in behind the same
// interface.
package translate

import (
	"fmt"
	"strings"

	"chathub/pkg/models"
)

// Translator produces a translation of content from one language tag to
// another.
type Translator interface {
	Translate(content, from, to string) (string, models.TranslationStatus, error)
}

// Demo is the built-in placeholder translator. It never calls out to a
// real translation service.
type Demo struct{}

// NewDemo returns the placeholder translator.
func NewDemo() *Demo { return &Demo{} }

// Translate returns the content wrapped in a visible translation marker.
// When source and target match (ignoring case) the content passes through
// untouched with status not-needed.
func (d *Demo) Translate(content, from, to string) (string, models.TranslationStatus, error) {
	if from == "" || to == "" || strings.EqualFold(from, to) {
		return content, models.TranslationNotNeeded, nil
	}
	out := fmt.Sprintf("Translated: %s (from %s to %s)", content, from, to)
	return out, models.TranslationCompleted, nil
}

// Annotate returns a copy of the message adjusted for one recipient's
// preferred language. The original content and language are preserved on
// the copy so clients can always show the untranslated text.
func Annotate(t Translator, m models.Message, recipientLang string) models.Message {
	from := m.Language
	if from == "" {
		from = "en"
	}
	if recipientLang == "" || strings.EqualFold(from, recipientLang) {
		m.TranslationStatus = models.TranslationNotNeeded
		return m
	}
	out, status, err := t.Translate(m.Content, from, recipientLang)
	if err != nil {
		m.TranslationStatus = models.TranslationFailed
		return m
	}
	m.OriginalContent = m.Content
	m.OriginalLanguage = from
	m.Content = out
	m.Language = recipientLang
	m.TranslationStatus = status
	return m
}
