package chat

import (
	"strings"

	"github.com/parley-chat/parley/internal/apperr"
)

// BroadcastKey addresses the single shared room every user can post to.
const BroadcastKey = "general"

const keySeparator = "_"

// ResolveKey derives the canonical key of the private conversation between
// two users. The pair is sorted before joining, so both participants compute
// the same key no matter who initiates, and distinct pairs never collide
// (user ids contain no separator).
func ResolveKey(selfID, otherID string) (string, error) {
	a := strings.TrimSpace(selfID)
	b := strings.TrimSpace(otherID)
	if a == "" || b == "" {
		return "", apperr.ErrBadParticipant
	}
	if strings.Contains(a, keySeparator) || strings.Contains(b, keySeparator) {
		return "", apperr.ErrBadParticipant
	}
	if a == b {
		return "", apperr.ErrSelfConversation
	}
	if a > b {
		a, b = b, a
	}
	return a + keySeparator + b, nil
}

// SplitKey returns the sorted participant pair encoded in a private
// conversation key.
func SplitKey(key string) (lo, hi string, err error) {
	if key == BroadcastKey {
		return "", "", apperr.ErrMalformedKey
	}
	parts := strings.Split(key, keySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] >= parts[1] {
		return "", "", apperr.ErrMalformedKey
	}
	return parts[0], parts[1], nil
}

// ValidKey reports whether key addresses the broadcast room or a well-formed
// private pair.
func ValidKey(key string) bool {
	if key == BroadcastKey {
		return true
	}
	_, _, err := SplitKey(key)
	return err == nil
}

// OtherParticipant returns the counterpart of selfID in a private key, or ""
// when selfID is not part of the pair.
func OtherParticipant(key, selfID string) string {
	lo, hi, err := SplitKey(key)
	if err != nil {
		return ""
	}
	switch selfID {
	case lo:
		return hi
	case hi:
		return lo
	}
	return ""
}
