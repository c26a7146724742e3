package user

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/astro-auth-api/internal/domain"
	"github.com/astro-auth-api/internal/pkg/clock"
	"github.com/astro-auth-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldEmailVerified = "email_verified"
	fieldFullName      = "full_name"
	fieldGender        = "gender"
	fieldMarital       = "marital_status"
	fieldDateOfBirth   = "date_of_birth"
	fieldTimeOfBirth   = "time_of_birth"
	fieldPlaceOfBirth  = "place_of_birth"
	fieldTimezone      = "timezone"
)

type Service interface {
	// GetOrCreate returns the user for the email, creating an unverified one
	// on first sight. Callers pass a normalized email.
	GetOrCreate(ctx context.Context, email string) (*domain.User, error)
	// MarkVerified flips the verified flag. Re-verifying an already verified
	// user is a no-op.
	MarkVerified(ctx context.Context, u *domain.User) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	RegisterProfile(ctx context.Context, userID string, req domain.RegisterProfileRequest) (*domain.UserProfile, error)
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error)
	HasProfile(ctx context.Context, userID string) (bool, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type profileStore interface {
	Put(ctx context.Context, p *domain.UserProfile) error
	GetByUser(ctx context.Context, userID string) (*domain.UserProfile, error)
	Update(ctx context.Context, profileID string, updates map[string]interface{}) error
}

type ServiceDeps struct {
	UserRepo    userStore
	ProfileRepo profileStore
	Clock       clock.Clock
}

type service struct {
	repo     userStore
	profiles profileStore
	clk      clock.Clock
	locks    [32]sync.Mutex // striped by email; serializes get-or-create per address
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.UserRepo,
		profiles: deps.ProfileRepo,
		clk:      deps.Clock,
	}
}

func (s *service) GetOrCreate(ctx context.Context, email string) (*domain.User, error) {
	mu := s.lock(email)
	mu.Lock()
	defer mu.Unlock()

	u, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.clk.Now()
	u = &domain.User{
		UserID:        id.New(),
		Email:         email,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("created user", "user_id", u.UserID, "email", email)
	return u, nil
}

func (s *service) MarkVerified(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.EmailVerified {
		return u, nil
	}
	if err := s.repo.Update(ctx, u.UserID, map[string]interface{}{fieldEmailVerified: true}); err != nil {
		return nil, err
	}
	u.EmailVerified = true
	u.UpdatedAt = s.clk.Now()
	slog.Info("verified user email", "user_id", u.UserID)
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *service) RegisterProfile(ctx context.Context, userID string, req domain.RegisterProfileRequest) (*domain.UserProfile, error) {
	if _, err := s.profiles.GetByUser(ctx, userID); err == nil {
		return nil, fmt.Errorf("profile already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.clk.Now()
	p := &domain.UserProfile{
		ProfileID:     id.New(),
		UserID:        userID,
		FullName:      req.FullName,
		Gender:        req.Gender,
		MaritalStatus: req.MaritalStatus,
		DateOfBirth:   req.DateOfBirth,
		TimeOfBirth:   req.TimeOfBirth,
		PlaceOfBirth:  req.PlaceOfBirth,
		Timezone:      req.Timezone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.profiles.Put(ctx, p); err != nil {
		return nil, err
	}
	slog.Info("registered profile", "user_id", userID, "profile_id", p.ProfileID)
	return p, nil
}

func (s *service) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return s.profiles.GetByUser(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error) {
	p, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	apply := func(field string, dst *string, src *string) {
		if src != nil {
			updates[field] = *src
			*dst = *src
		}
	}
	apply(fieldFullName, &p.FullName, req.FullName)
	apply(fieldGender, &p.Gender, req.Gender)
	apply(fieldMarital, &p.MaritalStatus, req.MaritalStatus)
	apply(fieldDateOfBirth, &p.DateOfBirth, req.DateOfBirth)
	apply(fieldTimeOfBirth, &p.TimeOfBirth, req.TimeOfBirth)
	apply(fieldPlaceOfBirth, &p.PlaceOfBirth, req.PlaceOfBirth)
	apply(fieldTimezone, &p.Timezone, req.Timezone)
	if len(updates) == 0 {
		return p, nil
	}

	if err := s.profiles.Update(ctx, p.ProfileID, updates); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.clk.Now()
	return p, nil
}

func (s *service) HasProfile(ctx context.Context, userID string) (bool, error) {
	_, err := s.profiles.GetByUser(ctx, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *service) lock(email string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(email))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}
