package chat

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/apperr"
	"github.com/parley-chat/parley/internal/common"
)

const previewMaxRunes = 80

// Bus carries committed deltas across server instances. When set, every
// delta goes through the bus and comes back into the local hub via the
// bridge; when nil the hub is fed directly (single instance, tests).
type Bus interface {
	Publish(ctx context.Context, ev Event) error
}

// JobQueue enqueues notification jobs for the offline counterpart.
type JobQueue interface {
	PublishJob(ctx context.Context, job *NotificationJob) error
}

type Service struct {
	repo  *Repo
	hub   *Hub
	bus   Bus
	queue JobQueue

	mu       sync.Mutex
	sendLock map[string]*sync.Mutex
}

func NewService(repo *Repo, hub *Hub) *Service {
	return &Service{repo: repo, hub: hub, sendLock: map[string]*sync.Mutex{}}
}

// WithBus routes deltas through a cross-instance bus.
func (s *Service) WithBus(bus Bus) *Service {
	s.bus = bus
	return s
}

// WithJobQueue enables the async notification pipeline.
func (s *Service) WithJobQueue(q JobQueue) *Service {
	s.queue = q
	return s
}

// Hub exposes the live sync channel, mainly for the bus bridge and shutdown.
func (s *Service) Hub() *Hub { return s.hub }

// StartPrivateConversation resolves the canonical key for the pair and makes
// sure the metadata record exists. Both sides calling this concurrently
// converge on one record.
func (s *Service) StartPrivateConversation(ctx context.Context, selfID, otherID string) (*Conversation, error) {
	key, err := ResolveKey(selfID, otherID)
	if err != nil {
		return nil, err
	}
	lo, hi, _ := SplitKey(key)

	conv, err := s.repo.EnsureConversation(ctx, &Conversation{
		Key:            key,
		Kind:           KindPrivate,
		ParticipantLo:  lo,
		ParticipantHi:  hi,
		LastActivityAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, apperr.Unavailable("conversation store unreachable", err)
	}

	s.emitConversation(ctx, conv)
	return conv, nil
}

// EnsureBroadcast creates the shared room record if missing. Called once at
// startup and defensively before broadcast appends.
func (s *Service) EnsureBroadcast(ctx context.Context) (*Conversation, error) {
	conv, err := s.repo.EnsureConversation(ctx, &Conversation{
		Key:            BroadcastKey,
		Kind:           KindBroadcast,
		LastActivityAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, apperr.Unavailable("conversation store unreachable", err)
	}
	return conv, nil
}

// OpenConversation returns the metadata, the full ordered history, and a
// live handle. The handle is registered before the snapshot is read, so a
// delta committed while we read is seen at least once.
func (s *Service) OpenConversation(ctx context.Context, key, selfID string) (*Conversation, []Message, *Subscription, error) {
	conv, err := s.ensureForKey(ctx, key, selfID)
	if err != nil {
		return nil, nil, nil, err
	}

	sub := s.hub.Subscribe(key)

	history, err := s.repo.ListMessagesAsc(ctx, key)
	if err != nil {
		s.hub.Unsubscribe(sub)
		return nil, nil, nil, apperr.Unavailable("message log unreachable", err)
	}
	return conv, history, sub, nil
}

// SendMessage appends to the log and refreshes the metadata in one place, so
// preview and activity time can never drift from the log tail.
func (s *Service) SendMessage(ctx context.Context, key, senderID, text string) (*Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperr.ErrEmptyMessage
	}

	// First-message-creates-the-room: creating metadata here makes the
	// explicit start action and the bare send equivalent.
	conv, err := s.ensureForKey(ctx, key, senderID)
	if err != nil {
		return nil, err
	}

	// append and publish under one per-key lock: concurrent senders may not
	// commit in one order and deliver deltas in another
	lock := s.lockKey(key)
	lock.Lock()

	msg := &Message{
		ConversationKey: key,
		SenderID:        senderID,
		Text:            trimmed,
		// server-assigned: client clocks never order the log
		SentAt: time.Now().UTC(),
	}
	preview := truncatePreview(trimmed)
	if err := s.repo.AppendMessage(ctx, msg, preview); err != nil {
		lock.Unlock()
		return nil, apperr.Unavailable("message log unreachable", err)
	}
	conv.LastMessagePreview = preview
	conv.LastActivityAt = msg.SentAt

	s.emit(ctx, Event{Type: EventMessage, Topic: key, Message: msg})
	s.emitConversation(ctx, conv)
	lock.Unlock()

	if conv.Kind == KindPrivate {
		s.enqueueNotification(ctx, conv, msg)
	}
	return msg, nil
}

// ReadMessages returns the full ordered history as of the call.
func (s *Service) ReadMessages(ctx context.Context, key, selfID string) ([]Message, error) {
	if _, err := s.ensureForKey(ctx, key, selfID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessagesAsc(ctx, key)
	if err != nil {
		return nil, apperr.Unavailable("message log unreachable", err)
	}
	return msgs, nil
}

// ListMyConversations returns the caller's private conversations, most
// recently active first.
func (s *Service) ListMyConversations(ctx context.Context, selfID string) ([]Conversation, error) {
	convs, err := s.repo.ListForParticipant(ctx, selfID)
	if err != nil {
		return nil, apperr.Unavailable("conversation store unreachable", err)
	}
	return convs, nil
}

// SubscribeInbox attaches a live handle to the caller's conversation list.
func (s *Service) SubscribeInbox(selfID string) *Subscription {
	return s.hub.Subscribe(InboxTopic(selfID))
}

// CloseConversationView releases a live handle.
func (s *Service) CloseConversationView(sub *Subscription) {
	s.hub.Unsubscribe(sub)
}

// ensureForKey validates the key, checks the caller belongs to it, and
// create-or-fetches the metadata record.
func (s *Service) ensureForKey(ctx context.Context, key, selfID string) (*Conversation, error) {
	if key == BroadcastKey {
		return s.EnsureBroadcast(ctx)
	}

	lo, hi, err := SplitKey(key)
	if err != nil {
		return nil, err
	}
	if selfID != lo && selfID != hi {
		// hide existence
		return nil, apperr.ErrConvNotFound
	}

	conv, err := s.repo.EnsureConversation(ctx, &Conversation{
		Key:            key,
		Kind:           KindPrivate,
		ParticipantLo:  lo,
		ParticipantHi:  hi,
		LastActivityAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, apperr.Unavailable("conversation store unreachable", err)
	}
	return conv, nil
}

func (s *Service) lockKey(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sendLock[key]
	if !ok {
		l = &sync.Mutex{}
		s.sendLock[key] = l
	}
	return l
}

func (s *Service) emit(ctx context.Context, ev Event) {
	if s.bus != nil {
		if err := s.bus.Publish(ctx, ev); err != nil {
			log.Printf("[chat] bus publish failed topic=%s type=%s err=%v", ev.Topic, ev.Type, err)
		}
		return
	}
	s.hub.Publish(ev)
}

// emitConversation pushes the metadata delta to the conversation topic and
// to each participant's inbox topic, so open views and recent lists stay in
// sync without polling.
func (s *Service) emitConversation(ctx context.Context, conv *Conversation) {
	s.emit(ctx, Event{Type: EventConversation, Topic: conv.Key, Conversation: conv})
	for _, uid := range conv.ParticipantIDs() {
		s.emit(ctx, Event{Type: EventConversation, Topic: InboxTopic(uid), Conversation: conv})
	}
}

// enqueueNotification is best-effort: a committed message must never fail
// because the notification pipeline is down.
func (s *Service) enqueueNotification(ctx context.Context, conv *Conversation, msg *Message) {
	if s.queue == nil {
		return
	}
	recipient := OtherParticipant(conv.Key, msg.SenderID)
	if recipient == "" {
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		log.Printf("[chat] NewULID failed key=%s err=%v", conv.Key, err)
		return
	}
	job := &NotificationJob{
		ID:              jobID,
		ConversationKey: conv.Key,
		RecipientID:     recipient,
		MessageID:       msg.ID,
		IdempotencyKey:  idempotencyKey(msg.ID, recipient),
		Status:          JobQueued,
	}
	job, created, err := s.repo.CreateJobOrGetExisting(ctx, job)
	if err != nil {
		log.Printf("[chat] create notification job failed key=%s msg=%d err=%v", conv.Key, msg.ID, err)
		return
	}
	if !created {
		return
	}
	if err := s.queue.PublishJob(ctx, job); err != nil {
		log.Printf("[chat] enqueue notification failed job=%s err=%v", job.ID, err)
	}
}

func idempotencyKey(messageID uint64, recipient string) string {
	return "msg:" + strconv.FormatUint(messageID, 10) + ":" + recipient
}

func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewMaxRunes {
		return text
	}
	return string(runes[:previewMaxRunes]) + "…"
}

// IsNotFound reports whether err is a missing-record condition from the
// store layer or the service taxonomy.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || apperr.CodeOf(err) == apperr.CodeNotFound
}
