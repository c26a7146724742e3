package otp

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/astro-auth-api/internal/domain"
	"github.com/astro-auth-api/internal/pkg/clock"
	"github.com/astro-auth-api/internal/pkg/code"
	"github.com/astro-auth-api/internal/pkg/id"
)

// casRetries bounds how often a verification re-reads after losing a
// conditional write to a concurrent caller (e.g. another node).
const casRetries = 3

type Service interface {
	// Issue invalidates every active code for the email and creates a fresh
	// one. It returns the plaintext (for delivery, never persisted) and the
	// expiry (for caller-facing messaging).
	Issue(ctx context.Context, email string) (plain string, expiresAt time.Time, err error)
	// Verify runs the submitted code through the lifecycle state machine.
	Verify(ctx context.Context, email, submitted string) error
}

type otpStore interface {
	Put(ctx context.Context, c *domain.OTPCode) error
	GetActiveByEmail(ctx context.Context, email string) (*domain.OTPCode, error)
	GetLatestByEmail(ctx context.Context, email string) (*domain.OTPCode, error)
	ListActiveByEmail(ctx context.Context, email string) ([]domain.OTPCode, error)
	MarkUsed(ctx context.Context, otpID string) error
	RecordFailedAttempt(ctx context.Context, otpID string, expectedAttempts int, markUsed bool) error
	Consume(ctx context.Context, otpID string, expectedAttempts int) error
}

type ServiceDeps struct {
	OTPRepo     otpStore
	Hasher      code.Hasher
	Clock       clock.Clock
	Length      int
	Expiry      time.Duration
	MaxAttempts int
}

type service struct {
	repo        otpStore
	hasher      code.Hasher
	clk         clock.Clock
	length      int
	expiry      time.Duration
	maxAttempts int
	locks       emailLocks
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.OTPRepo,
		hasher:      deps.Hasher,
		clk:         deps.Clock,
		length:      deps.Length,
		expiry:      deps.Expiry,
		maxAttempts: deps.MaxAttempts,
	}
}

func (s *service) Issue(ctx context.Context, email string) (string, time.Time, error) {
	mu := s.locks.get(email)
	mu.Lock()
	defer mu.Unlock()

	// Invalidate-then-insert: at most one active record per email survives
	// any sequence of Issue calls.
	active, err := s.repo.ListActiveByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, err
	}
	for i := range active {
		if err := s.repo.MarkUsed(ctx, active[i].OTPID); err != nil {
			return "", time.Time{}, err
		}
	}

	plain, err := code.Generate(s.length)
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.clk.Now()
	rec := &domain.OTPCode{
		OTPID:        id.New(),
		Email:        email,
		CodeHash:     hash,
		Attempts:     0,
		MaxAttempts:  s.maxAttempts,
		IsUsed:       false,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.expiry),
		ExpiresAtTTL: now.Add(s.expiry).Unix(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return "", time.Time{}, err
	}

	slog.Info("issued otp code", "email", email, "otp_id", rec.OTPID, "expires_at", rec.ExpiresAt)
	return plain, rec.ExpiresAt, nil
}

// Verify applies the state machine in fixed order: fetch active record,
// lazy expiry check, attempt-cap check, then the hash comparison. The cap
// check deliberately precedes the comparison so a correct code submitted at
// or past the limit is still rejected.
func (s *service) Verify(ctx context.Context, email, submitted string) error {
	mu := s.locks.get(email)
	mu.Lock()
	defer mu.Unlock()

	for range casRetries {
		rec, err := s.repo.GetActiveByEmail(ctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return s.terminalReason(ctx, email)
		}
		if err != nil {
			return err
		}

		if rec.Expired(s.clk.Now()) {
			if err := s.repo.MarkUsed(ctx, rec.OTPID); err != nil {
				return err
			}
			return fmt.Errorf("code for %s: %w", email, domain.ErrCodeExpired)
		}

		if rec.Exhausted() {
			if err := s.repo.MarkUsed(ctx, rec.OTPID); err != nil {
				return err
			}
			return fmt.Errorf("code for %s: %w", email, domain.ErrAttemptsExceeded)
		}

		if !s.hasher.Compare(submitted, rec.CodeHash) {
			// When this failure reaches the cap the record is marked used in
			// the same write instead of waiting for the next call.
			exhausts := rec.Attempts+1 >= rec.MaxAttempts
			err := s.repo.RecordFailedAttempt(ctx, rec.OTPID, rec.Attempts, exhausts)
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			if err != nil {
				return err
			}
			remaining := rec.MaxAttempts - rec.Attempts - 1
			slog.Info("otp verification failed", "email", email, "otp_id", rec.OTPID, "remaining", remaining)
			return fmt.Errorf("invalid code, %d attempts remaining: %w", remaining, domain.ErrInvalidCode)
		}

		err = s.repo.Consume(ctx, rec.OTPID, rec.Attempts)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}
		slog.Info("otp verified", "email", email, "otp_id", rec.OTPID)
		return nil
	}
	return fmt.Errorf("verification for %s kept losing concurrent updates: %w", email, domain.ErrConflict)
}

// terminalReason distinguishes "you exhausted your attempts" from "there is
// nothing to verify". The reason is derived from the newest record rather
// than stored: a used record whose attempts reached its cap went terminal by
// exhaustion, anything else (consumed, expired, never issued) reads as no
// active code.
func (s *service) terminalReason(ctx context.Context, email string) error {
	latest, err := s.repo.GetLatestByEmail(ctx, email)
	if err == nil && latest.IsUsed && latest.Exhausted() {
		return fmt.Errorf("code for %s: %w", email, domain.ErrAttemptsExceeded)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("code for %s: %w", email, domain.ErrNoActiveCode)
}

// emailLocks serializes issue/verify per email within the process, closing
// the check-then-act window between reading a record and writing its next
// state. Striped rather than per-key: a collision only means two addresses
// share a lock, never that one goes unguarded.
type emailLocks struct {
	shards [64]sync.Mutex
}

func (l *emailLocks) get(email string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(email))
	return &l.shards[h.Sum32()%uint32(len(l.shards))]
}
