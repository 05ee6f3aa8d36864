package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/repository"
)

// ChatService owns the per-listing chat log: appending messages,
// replaying history, and resolving display names. A message is never
// announced before it is durably appended, and append-plus-announce
// runs under the listing lock so a history replay taken under the same
// lock sees each message exactly once, either in the replay or live.
type ChatService struct {
	posts      repository.PostRepository
	messages   repository.MessageRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	locks      *ListingLocks
	logger     *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(posts repository.PostRepository, messages repository.MessageRepository, users repository.UserRepository, dispatcher events.Dispatcher, locks *ListingLocks, logger *zap.Logger) *ChatService {
	return &ChatService{
		posts:      posts,
		messages:   messages,
		users:      users,
		dispatcher: dispatcher,
		locks:      locks,
		logger:     logger,
	}
}

// LockListing returns the mutex serializing this listing's chat
// appends. Join-and-replay paths hold it so the replay snapshot and
// the live stream never overlap.
func (s *ChatService) LockListing(postID string) *sync.Mutex {
	return s.locks.ForListing(postID)
}

// PostMessage appends a chat entry and announces it to the listing's
// room. Empty or whitespace-only content is dropped silently and
// returns a nil message.
func (s *ChatService) PostMessage(ctx context.Context, postID, senderID, receiverID, content string) (*domain.EnrichedMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, mapRepoErr(err, "post")
	}

	lock := s.locks.ForListing(postID)
	lock.Lock()
	defer lock.Unlock()

	msg := &domain.Message{
		ID:         uuid.NewString(),
		PostID:     postID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}

	enriched := s.enrich(ctx, *msg)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventChatMessageAdded,
			PostID:    postID,
			Timestamp: time.Now(),
			Payload:   events.ChatMessageAddedPayload{Message: enriched},
		})
	}
	return &enriched, nil
}

// History returns the listing's full ordered message sequence with
// display names resolved.
func (s *ChatService) History(ctx context.Context, postID string) ([]domain.EnrichedMessage, error) {
	msgs, err := s.messages.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.EnrichedMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, s.enrich(ctx, msg))
	}
	return out, nil
}

// enrich resolves display names, falling back to the raw identifier
// when a user is unknown.
func (s *ChatService) enrich(ctx context.Context, msg domain.Message) domain.EnrichedMessage {
	enriched := domain.EnrichedMessage{
		Message:      msg,
		SenderName:   msg.SenderID,
		ReceiverName: msg.ReceiverID,
	}
	if sender, err := s.users.GetByID(ctx, msg.SenderID); err == nil {
		enriched.SenderName = sender.Name
	}
	if receiver, err := s.users.GetByID(ctx, msg.ReceiverID); err == nil {
		enriched.ReceiverName = receiver.Name
	}
	return enriched
}
