package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/domain"
)

// MemoryUserRepository is a mutex-guarded in-memory implementation used as a
// test double. It mirrors the Postgres behavior, including the atomic
// check-and-clear semantics of token redemption and pgx.ErrNoRows as the
// missing-row sentinel.
type MemoryUserRepository struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

// NewMemoryUserRepository builds an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User), nextID: 1}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = strconv.Itoa(r.nextID)
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.PasswordHash = user.PasswordHash
	stored.Role = user.Role
	stored.IsEmailVerified = user.IsEmailVerified
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := domain.NormalizeEmail(email)
	for _, user := range r.users {
		if user.Email == normalized {
			return cloneUser(user), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) List(_ context.Context, limit, offset int) ([]*domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*domain.User, 0, len(r.users))
	for _, user := range r.users {
		all = append(all, cloneUser(user))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []*domain.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *MemoryUserRepository) SetVerificationToken(_ context.Context, id, token string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailVerificationToken = &token
	user.EmailVerificationExpires = &expires
	user.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordResetToken = &token
	user.PasswordResetExpires = &expires
	user.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) RedeemVerificationToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.EmailVerificationToken == nil || *user.EmailVerificationToken != token {
			continue
		}
		if user.EmailVerificationExpires == nil || !user.EmailVerificationExpires.After(time.Now()) {
			break
		}
		user.IsEmailVerified = true
		user.EmailVerificationToken = nil
		user.EmailVerificationExpires = nil
		user.UpdatedAt = time.Now()
		return cloneUser(user), nil
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) RedeemResetToken(_ context.Context, token, newPasswordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.PasswordResetToken == nil || *user.PasswordResetToken != token {
			continue
		}
		if user.PasswordResetExpires == nil || !user.PasswordResetExpires.After(time.Now()) {
			break
		}
		user.PasswordHash = newPasswordHash
		user.PasswordResetToken = nil
		user.PasswordResetExpires = nil
		user.UpdatedAt = time.Now()
		return cloneUser(user), nil
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) UpdatePasswordHash(_ context.Context, id, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = newHash
	user.UpdatedAt = time.Now()
	return nil
}

func cloneUser(user *domain.User) *domain.User {
	clone := *user
	if user.EmailVerificationToken != nil {
		v := *user.EmailVerificationToken
		clone.EmailVerificationToken = &v
	}
	if user.EmailVerificationExpires != nil {
		v := *user.EmailVerificationExpires
		clone.EmailVerificationExpires = &v
	}
	if user.PasswordResetToken != nil {
		v := *user.PasswordResetToken
		clone.PasswordResetToken = &v
	}
	if user.PasswordResetExpires != nil {
		v := *user.PasswordResetExpires
		clone.PasswordResetExpires = &v
	}
	return &clone
}
