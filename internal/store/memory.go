package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cueview/cueview/internal/models"
)

// Memory is the process-local backend used when no database is configured.
// Operations cannot fail except for not-found. Expired rooms are dropped
// outright; nothing survives a restart.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*models.Room)}
}

func (m *Memory) CreateRoom(_ context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[normalize(room.Code)] = room.Clone()
	return nil
}

func (m *Memory) GetRoom(_ context.Context, code string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[normalize(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (m *Memory) RoomExists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[normalize(code)]
	return ok, nil
}

func (m *Memory) SaveRoom(_ context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalize(room.Code)
	if _, ok := m.rooms[key]; !ok {
		return ErrNotFound
	}
	m.rooms[key] = room.Clone()
	return nil
}

func (m *Memory) DeleteRoom(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, normalize(code))
	return nil
}

func (m *Memory) TouchRoom(_ context.Context, code string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[normalize(code)]
	if !ok {
		return ErrNotFound
	}
	room.LastActivityAt = at
	return nil
}

func (m *Memory) ActiveRoomCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms), nil
}

func (m *Memory) ExpireRoomsIdleSince(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expired := 0
	for code, room := range m.rooms {
		if room.LastActivityAt.Before(cutoff) {
			delete(m.rooms, code)
			expired++
		}
	}
	return expired, nil
}

func normalize(code string) string {
	return strings.ToUpper(code)
}
