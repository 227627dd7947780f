package chat

import (
	"context"
	"testing"
	"time"
)

func TestEnsureConversation_SecondWriterNeverOverwrites(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	key, _ := ResolveKey(u1, u2)
	first, err := repo.EnsureConversation(ctx, &Conversation{
		Key:           key,
		Kind:          KindPrivate,
		ParticipantLo: u1,
		ParticipantHi: u2,
	})
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}

	// give the record state a racing writer would erase with a blind upsert
	if err := repo.TouchOnMessage(ctx, key, "already here", time.Now().UTC()); err != nil {
		t.Fatalf("touch: %v", err)
	}

	second, err := repo.EnsureConversation(ctx, &Conversation{
		Key:           key,
		Kind:          KindPrivate,
		ParticipantLo: u1,
		ParticipantHi: u2,
	})
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("ensure created a second record: %d vs %d", second.ID, first.ID)
	}
	if second.LastMessagePreview != "already here" {
		t.Fatalf("racing ensure erased the preview: %q", second.LastMessagePreview)
	}
}

func TestTouchOnMessage_LeavesParticipantsAlone(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	key, _ := ResolveKey(u1, u2)
	if _, err := repo.EnsureConversation(ctx, &Conversation{
		Key:           key,
		Kind:          KindPrivate,
		ParticipantLo: u1,
		ParticipantHi: u2,
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := repo.TouchOnMessage(ctx, key, "hi", time.Now().UTC()); err != nil {
		t.Fatalf("touch: %v", err)
	}

	conv, err := repo.GetConversation(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if conv.ParticipantLo != u1 || conv.ParticipantHi != u2 || conv.Kind != KindPrivate {
		t.Fatalf("touch mutated immutable fields: %+v", conv)
	}
}

func TestAppendMessage_UpdatesMetadataWithMessage(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	key, _ := ResolveKey(u1, u2)
	if _, err := repo.EnsureConversation(ctx, &Conversation{
		Key:           key,
		Kind:          KindPrivate,
		ParticipantLo: u1,
		ParticipantHi: u2,
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	msg := &Message{
		ConversationKey: key,
		SenderID:        u1,
		Text:            "hello there",
		SentAt:          time.Now().UTC(),
	}
	if err := repo.AppendMessage(ctx, msg, "hello there"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if msg.ID == 0 {
		t.Fatalf("append did not assign an id")
	}

	conv, err := repo.GetConversation(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if conv.LastMessagePreview != "hello there" {
		t.Fatalf("preview not updated: %q", conv.LastMessagePreview)
	}
}

func TestCreateJobOrGetExisting_Idempotent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	mk := func(id string) *NotificationJob {
		return &NotificationJob{
			ID:              id,
			ConversationKey: "a_b",
			RecipientID:     u2,
			MessageID:       7,
			IdempotencyKey:  idempotencyKey(7, u2),
			Status:          JobQueued,
		}
	}

	first, created, err := repo.CreateJobOrGetExisting(ctx, mk("01JOBAAAAAAAAAAAAAAAAAAAAA"))
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	second, created, err := repo.CreateJobOrGetExisting(ctx, mk("01JOBBBBBBBBBBBBBBBBBBBBBB"))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatalf("duplicate idempotency key must return the existing job")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing job %s, got %s", first.ID, second.ID)
	}
}
