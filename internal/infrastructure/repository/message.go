package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/google/uuid"
)

// storedMessage keeps the message body sealed; the rest is metadata.
type storedMessage struct {
	meta domain.GlobalChatMessage
	body *crypto.Envelope
}

func sealMessage(codec *crypto.Codec, msg domain.GlobalChatMessage) (*storedMessage, error) {
	env, err := codec.Encrypt(msg.Message)
	if err != nil {
		return nil, err
	}
	msg.Message = ""
	msg.AirportMentions = append([]string{}, msg.AirportMentions...)
	msg.UserMentions = append([]string{}, msg.UserMentions...)
	return &storedMessage{meta: msg, body: env}, nil
}

func (m *storedMessage) open(codec *crypto.Codec) domain.GlobalChatMessage {
	out := m.meta
	out.Message = codec.DecryptString(m.body)
	out.AirportMentions = append([]string{}, m.meta.AirportMentions...)
	out.UserMentions = append([]string{}, m.meta.UserMentions...)
	return out
}

func prepareMessage(msg *domain.ChatMessage) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
}

type chatRepository struct {
	store *PartitionStore
	codec *crypto.Codec
}

func NewChatRepository(store *PartitionStore, codec *crypto.Codec) domain.ChatRepository {
	return &chatRepository{store: store, codec: codec}
}

func (r *chatRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	if message == nil || message.SessionID == "" {
		return domain.ErrInvalidInput
	}
	prepareMessage(message)

	sm, err := sealMessage(r.codec, domain.GlobalChatMessage{ChatMessage: *message})
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, err := r.store.chatPartition(message.SessionID)
	if err != nil {
		return err
	}
	p[message.ID] = sm
	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, sessionID, messageID string) (*domain.ChatMessage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, err := r.store.chatPartition(sessionID)
	if err != nil {
		return nil, err
	}
	sm, ok := p[messageID]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	msg := sm.open(r.codec).ChatMessage
	return &msg, nil
}

// ListRecent returns up to limit messages, oldest first.
func (r *chatRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, err := r.store.chatPartition(sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]*domain.ChatMessage, 0, len(p))
	for _, sm := range p {
		msg := sm.open(r.codec).ChatMessage
		messages = append(messages, &msg)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].SentAt.Before(messages[j].SentAt) })

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (r *chatRepository) DeleteOwned(ctx context.Context, sessionID, messageID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, err := r.store.chatPartition(sessionID)
	if err != nil {
		return err
	}
	sm, ok := p[messageID]
	if !ok {
		return domain.ErrMessageNotFound
	}
	if userID == "" || sm.meta.UserID != userID {
		return domain.ErrNotMessageOwner
	}
	delete(p, messageID)
	return nil
}

// Oldest global messages are evicted when capacity is exceeded.
type globalChatRepository struct {
	messages []*storedMessage
	capacity int
	codec    *crypto.Codec
	mu       *sync.RWMutex
}

func NewGlobalChatRepository(codec *crypto.Codec, capacity int) domain.GlobalChatRepository {
	if capacity <= 0 {
		capacity = 1000 // sane default
	}
	return &globalChatRepository{
		capacity: capacity,
		codec:    codec,
		mu:       &sync.RWMutex{},
	}
}

func (r *globalChatRepository) Create(ctx context.Context, message *domain.GlobalChatMessage) error {
	if message == nil {
		return domain.ErrInvalidInput
	}
	prepareMessage(&message.ChatMessage)

	sm, err := sealMessage(r.codec, *message)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, sm)
	if len(r.messages) > r.capacity {
		excess := len(r.messages) - r.capacity
		r.messages = r.messages[excess:] // drop oldest
	}
	return nil
}

func (r *globalChatRepository) ListRecent(ctx context.Context, limit int) ([]*domain.GlobalChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.GlobalChatMessage, 0, len(r.messages))
	for _, sm := range r.messages {
		if sm.meta.DeletedAt != nil {
			continue
		}
		msg := sm.open(r.codec)
		out = append(out, &msg)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *globalChatRepository) SoftDeleteOwned(ctx context.Context, messageID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sm := range r.messages {
		if sm.meta.ID != messageID || sm.meta.DeletedAt != nil {
			continue
		}
		if userID == "" || sm.meta.UserID != userID {
			return domain.ErrNotMessageOwner
		}
		now := time.Now().UTC()
		sm.meta.DeletedAt = &now
		return nil
	}
	return domain.ErrMessageNotFound
}

func (r *globalChatRepository) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.messages[:0]
	var purged int64
	for _, sm := range r.messages {
		if sm.meta.SentAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, sm)
	}
	for i := len(kept); i < len(r.messages); i++ {
		r.messages[i] = nil
	}
	r.messages = kept
	return purged, nil
}
