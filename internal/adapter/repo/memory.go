package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"thumbgen/internal/domain"
)

// MemoryUserRepository keeps users in process memory. Used when no database is configured.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: map[string]*domain.User{}, byEmail: map[string]string{}}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return nil, domain.ErrEmailTaken
	}
	now := time.Now().UTC()
	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = &u
	r.byEmail[email] = u.ID
	out := u
	return &out, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *u
	return &out, nil
}

// MemoryHistoryRepository keeps per-user history in process memory, newest first.
type MemoryHistoryRepository struct {
	mu         sync.Mutex
	maxRecords int
	byUser     map[string][]domain.HistoryRecord
}

func NewMemoryHistoryRepository(maxRecords int) *MemoryHistoryRepository {
	if maxRecords <= 0 {
		maxRecords = domain.DefaultHistoryLimit
	}
	return &MemoryHistoryRepository{maxRecords: maxRecords, byUser: map[string][]domain.HistoryRecord{}}
}

func (r *MemoryHistoryRepository) Append(ctx context.Context, record *domain.HistoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	rec := *record
	rec.ImageURLs = append([]string{}, record.ImageURLs...)

	r.mu.Lock()
	defer r.mu.Unlock()
	list := append([]domain.HistoryRecord{rec}, r.byUser[record.UserID]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > r.maxRecords {
		list = list[:r.maxRecords]
	}
	r.byUser[record.UserID] = list
	return nil
}

func (r *MemoryHistoryRepository) List(ctx context.Context, userID string, limit, offset int) (*domain.HistoryPage, error) {
	limit, offset = normalizePage(limit, offset, r.maxRecords)
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byUser[userID]
	page := &domain.HistoryPage{Records: []domain.HistoryRecord{}, Total: len(list), Limit: limit, Offset: offset}
	if offset >= len(list) {
		return page, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	page.Records = append(page.Records, list[offset:end]...)
	return page, nil
}

func (r *MemoryHistoryRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byUser[userID]
	for i, rec := range list {
		if rec.ID == id {
			r.byUser[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MemoryHistoryRepository) Clear(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

var (
	_ domain.UserRepository    = (*MemoryUserRepository)(nil)
	_ domain.HistoryRepository = (*MemoryHistoryRepository)(nil)
)
