package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_DistinguishesSentinelsSharingACode(t *testing.T) {
	if errors.Is(ErrBadParticipant, ErrSelfConversation) {
		t.Fatalf("distinct sentinels with the same code must not match")
	}
	if !errors.Is(ErrSelfConversation, ErrSelfConversation) {
		t.Fatalf("sentinel must match itself")
	}
}

func TestIs_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("send: %w", ErrEmptyMessage)
	if !errors.Is(wrapped, ErrEmptyMessage) {
		t.Fatalf("wrapped sentinel must still match")
	}
	if CodeOf(wrapped) != CodeInvalidMessage {
		t.Fatalf("code lost through wrapping: %q", CodeOf(wrapped))
	}
}

func TestCodeOf_UnknownForForeignErrors(t *testing.T) {
	if CodeOf(errors.New("boom")) != CodeUnknown {
		t.Fatalf("foreign error must map to the unknown code")
	}
	if CodeOf(nil) != CodeUnknown {
		t.Fatalf("nil must map to the unknown code")
	}
}
