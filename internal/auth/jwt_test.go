package auth

import (
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := SignJWT("01USERAAAAAAAAAAAAAAAAAAAA", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	uid, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if uid != "01USERAAAAAAAAAAAAAAAAAAAA" {
		t.Fatalf("unexpected uid: %q", uid)
	}
}

func TestJWT_WrongSecretRejected(t *testing.T) {
	token, err := SignJWT("01USERAAAAAAAAAAAAAAAAAAAA", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT(token, "other"); err == nil {
		t.Fatalf("expected rejection with wrong secret")
	}
}

func TestJWT_ExpiredRejected(t *testing.T) {
	token, err := SignJWT("01USERAAAAAAAAAAAAAAAAAAAA", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatalf("expected rejection of expired token")
	}
}
