package services

import (
	"context"
	"sync"
	"time"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/domain/events"
	"github.com/stretchr/testify/mock"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, e := range batch {
		_ = p.Publish(ctx, e)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *recordingMetrics) IncrementCounter(ctx context.Context, name string, dimensions map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
}

func (m *recordingMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// MockLyricRepository is a mock implementation of ports.LyricRepository
type MockLyricRepository struct {
	mock.Mock
}

func (m *MockLyricRepository) Create(ctx context.Context, doc *entities.LyricDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockLyricRepository) GetByID(ctx context.Context, docID string) (*entities.LyricDocument, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LyricDocument), args.Error(1)
}

func (m *MockLyricRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.LyricDocument, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]*entities.LyricDocument), args.Error(1)
}

func (m *MockLyricRepository) ListPublic(ctx context.Context) ([]*entities.LyricDocument, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*entities.LyricDocument), args.Error(1)
}

func (m *MockLyricRepository) UpdateContent(ctx context.Context, docID, ownerID string, expectedVersion int, changes ports.ContentChanges, now time.Time) (*entities.LyricDocument, error) {
	args := m.Called(ctx, docID, ownerID, expectedVersion, changes, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LyricDocument), args.Error(1)
}

func (m *MockLyricRepository) UpdateSharing(ctx context.Context, docID, ownerID string, isPublic bool, ownerName *string) (*entities.LyricDocument, error) {
	args := m.Called(ctx, docID, ownerID, isPublic, ownerName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LyricDocument), args.Error(1)
}

func (m *MockLyricRepository) Delete(ctx context.Context, docID, ownerID string) error {
	args := m.Called(ctx, docID, ownerID)
	return args.Error(0)
}

// MockVersionRepository is a mock implementation of ports.VersionRepository
type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) Append(ctx context.Context, snapshot *entities.VersionSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockVersionRepository) AppendIfAbsent(ctx context.Context, snapshot *entities.VersionSnapshot) (bool, error) {
	args := m.Called(ctx, snapshot)
	return args.Bool(0), args.Error(1)
}

func (m *MockVersionRepository) List(ctx context.Context, docID string) ([]*entities.VersionSnapshot, error) {
	args := m.Called(ctx, docID)
	return args.Get(0).([]*entities.VersionSnapshot), args.Error(1)
}

func (m *MockVersionRepository) Get(ctx context.Context, docID string, version int) (*entities.VersionSnapshot, error) {
	args := m.Called(ctx, docID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VersionSnapshot), args.Error(1)
}

func (m *MockVersionRepository) DeleteAll(ctx context.Context, docID string) (int, error) {
	args := m.Called(ctx, docID)
	return args.Int(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}
