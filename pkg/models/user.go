package models

// User is an authenticated account. Identity is immutable once created;
// the preferred language is a mutable preference used to annotate pushes.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	// PreferredLanguage is a BCP 47 language tag, e.g. "en" or "fr".
	PreferredLanguage string `json:"preferredLanguage"`
	// PasswordHash is the bcrypt hash of the account password. Never
	// serialized in API responses.
	PasswordHash string `json:"-"`
	CreatedTS    int64  `json:"created_ts,omitempty"`
}

// SystemSender is the sender id used for server-generated messages.
const SystemSender = "system"
