package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
)

// ErrPartitionMissing is returned when a flight or chat partition is used
// before it was provisioned.
var ErrPartitionMissing = errors.New("partition does not exist")

// PartitionStore holds the per-session flight and chat partitions in
// memory. It is the storage.driver=memory counterpart of the document
// store collections.
type PartitionStore struct {
	flights map[string]map[string]*storedFlight  // partition -> flightID -> flight
	chats   map[string]map[string]*storedMessage // partition -> messageID -> message
	mu      *sync.RWMutex
}

func NewPartitionStore() *PartitionStore {
	return &PartitionStore{
		flights: make(map[string]map[string]*storedFlight),
		chats:   make(map[string]map[string]*storedMessage),
		mu:      &sync.RWMutex{},
	}
}

// EnsurePartition creates both partitions of a session. Existing
// partitions are left alone.
func (s *PartitionStore) EnsurePartition(ctx context.Context, sessionID string) error {
	flights, err := domain.FlightsPartition(sessionID)
	if err != nil {
		return err
	}
	chat, err := domain.ChatPartition(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.flights[flights]; !exists {
		s.flights[flights] = make(map[string]*storedFlight)
	}
	if _, exists := s.chats[chat]; !exists {
		s.chats[chat] = make(map[string]*storedMessage)
	}
	return nil
}

func (s *PartitionStore) DropPartition(ctx context.Context, sessionID string) error {
	flights, err := domain.FlightsPartition(sessionID)
	if err != nil {
		return err
	}
	chat, err := domain.ChatPartition(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flights, flights)
	delete(s.chats, chat)
	return nil
}

func (s *PartitionStore) ListPartitions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.flights))
	for name := range s.flights {
		if id, ok := domain.SessionFromFlightsPartition(name); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// flightPartition must be called with the lock held.
func (s *PartitionStore) flightPartition(sessionID string) (map[string]*storedFlight, error) {
	name, err := domain.FlightsPartition(sessionID)
	if err != nil {
		return nil, err
	}
	p, ok := s.flights[name]
	if !ok {
		return nil, ErrPartitionMissing
	}
	return p, nil
}

// chatPartition must be called with the lock held.
func (s *PartitionStore) chatPartition(sessionID string) (map[string]*storedMessage, error) {
	name, err := domain.ChatPartition(sessionID)
	if err != nil {
		return nil, err
	}
	p, ok := s.chats[name]
	if !ok {
		return nil, ErrPartitionMissing
	}
	return p, nil
}
