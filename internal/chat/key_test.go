package chat

import (
	"errors"
	"testing"

	"github.com/parley-chat/parley/internal/apperr"
)

func TestResolveKey_Commutative(t *testing.T) {
	k1, err := ResolveKey("01AAA", "01BBB")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	k2, err := ResolveKey("01BBB", "01AAA")
	if err != nil {
		t.Fatalf("resolve reversed: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("keys differ by call order: %q vs %q", k1, k2)
	}
	if k1 != "01AAA_01BBB" {
		t.Fatalf("unexpected canonical key: %q", k1)
	}
}

func TestResolveKey_SelfRejected(t *testing.T) {
	_, err := ResolveKey("01AAA", "01AAA")
	if !errors.Is(err, apperr.ErrSelfConversation) {
		t.Fatalf("expected self-conversation rejection, got %v", err)
	}
	if apperr.CodeOf(err) != apperr.CodeInvalidTarget {
		t.Fatalf("expected InvalidTarget code, got %q", apperr.CodeOf(err))
	}
}

func TestResolveKey_EmptyRejected(t *testing.T) {
	for _, pair := range [][2]string{{"", "01BBB"}, {"01AAA", ""}, {"  ", "01BBB"}} {
		if _, err := ResolveKey(pair[0], pair[1]); apperr.CodeOf(err) != apperr.CodeInvalidTarget {
			t.Fatalf("pair %q/%q: expected InvalidTarget, got %v", pair[0], pair[1], err)
		}
	}
}

func TestResolveKey_DistinctPairsNeverCollide(t *testing.T) {
	ids := []string{"01AAA", "01BBB", "01CCC", "01DDD"}
	seen := map[string][2]string{}
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			k, err := ResolveKey(a, b)
			if err != nil {
				t.Fatalf("resolve %s/%s: %v", a, b, err)
			}
			if prev, dup := seen[k]; dup {
				t.Fatalf("pairs %v and %v collide on %q", prev, [2]string{a, b}, k)
			}
			seen[k] = [2]string{a, b}
		}
	}
}

func TestSplitKey_RoundTrip(t *testing.T) {
	key, _ := ResolveKey("01ZZZ", "01AAA")
	lo, hi, err := SplitKey(key)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if lo != "01AAA" || hi != "01ZZZ" {
		t.Fatalf("unexpected pair: %q %q", lo, hi)
	}

	if other := OtherParticipant(key, "01AAA"); other != "01ZZZ" {
		t.Fatalf("expected counterpart 01ZZZ, got %q", other)
	}
	if other := OtherParticipant(key, "01QQQ"); other != "" {
		t.Fatalf("expected empty counterpart for outsider, got %q", other)
	}
}

func TestValidKey(t *testing.T) {
	if !ValidKey(BroadcastKey) {
		t.Fatalf("broadcast key must be valid")
	}
	key, _ := ResolveKey("01AAA", "01BBB")
	if !ValidKey(key) {
		t.Fatalf("resolved key must be valid")
	}
	for _, bad := range []string{"", "_", "x_", "_x", "b_a", "solo"} {
		if ValidKey(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
