package store

import (
	"encoding/base64"
	"fmt"
	"strings"

	"chathub/pkg/errdefs"
)

// Key layout. Message keys sort lexicographically in append order because
// the suffix is the zero-padded timestamp plus a monotonic sequence:
//
//	user:<id>                          -> User JSON
//	user:name:<username>               -> user id
//	user:<id>:conv:<convID>            -> membership marker (reverse index)
//	conv:<id>                          -> Conversation JSON
//	conv:<id>:msg:<%020d ns>-<%06d>    -> Message JSON
//	msg:<id>                           -> latest copy of message <id>
//	receipt:<convID>:<msgID>:<userID>  -> Receipt JSON
const (
	userPrefix     = "user:"
	userNamePrefix = "user:name:"
	convPrefix     = "conv:"
	msgIdxPrefix   = "msg:"
	receiptPrefix  = "receipt:"
)

func userKey(id string) string         { return userPrefix + id }
func userNameKey(name string) string   { return userNamePrefix + name }
func convKey(id string) string         { return convPrefix + id }
func msgLatestKey(id string) string    { return msgIdxPrefix + id }
func userConvKey(u, c string) string   { return userPrefix + u + ":conv:" + c }
func userConvPrefix(u string) string   { return userPrefix + u + ":conv:" }
func convMsgPrefix(c string) string    { return convPrefix + c + ":msg:" }
func receiptKey(c, m, u string) string { return receiptPrefix + c + ":" + m + ":" + u }

// msgID builds the monotonic message identifier from a nanosecond
// timestamp and a sequence number.
func msgID(ts int64, seq uint64) string {
	return fmt.Sprintf("%020d-%06d", ts, seq)
}

func convMsgKey(convID string, id string) string {
	return convMsgPrefix(convID) + id
}

// EncodeCursor wraps the last seen message id into an opaque page cursor.
func EncodeCursor(lastID string) string {
	if lastID == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(lastID))
}

// DecodeCursor unwraps an opaque cursor back into a message id. Malformed
// cursors are a validation failure, not a server fault.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", errdefs.Validationf("malformed cursor")
	}
	id := string(b)
	if strings.ContainsRune(id, ':') {
		return "", errdefs.Validationf("malformed cursor")
	}
	return id, nil
}
