package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

type verificationStore interface {
	Put(ctx context.Context, v *domain.VerificationRecord) error
	Get(ctx context.Context, subjectID, channel string) (*domain.VerificationRecord, error)
	MarkConsumed(ctx context.Context, subjectID, channel string) error
}

// Ledger tracks outstanding and consumed one-time codes per (subject, channel).
type Ledger struct {
	store verificationStore
	ttl   time.Duration
	now   func() time.Time
}

func NewLedger(store verificationStore, ttl time.Duration) *Ledger {
	return &Ledger{store: store, ttl: ttl, now: time.Now}
}

// Issue stores a fresh code for the pair. The store's Put overwrites any
// outstanding record for the same (subject, channel), so re-requesting a code
// supersedes the previous one — two simultaneously valid codes cannot exist.
func (l *Ledger) Issue(ctx context.Context, subjectID, channel, code string) error {
	now := l.now().UTC()
	return l.store.Put(ctx, &domain.VerificationRecord{
		SubjectID: subjectID,
		Channel:   channel,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl).Unix(),
		Consumed:  false,
	})
}

// Consume validates and burns a code, returning the signature artifact.
// Each failure mode gets its own error so callers can guide the user:
// no record, already consumed, expired, or wrong code. The final consumed
// flip is a conditional write, so of two racing attempts exactly one wins.
func (l *Ledger) Consume(ctx context.Context, subjectID, channel, code string) (*domain.SignatureArtifact, error) {
	rec, err := l.store.Get(ctx, subjectID, channel)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no code issued for %s/%s: %w", subjectID, channel, domain.ErrCodeNotFound)
		}
		return nil, err
	}
	if rec.Consumed {
		return nil, fmt.Errorf("code for %s/%s: %w", subjectID, channel, domain.ErrCodeAlreadyUsed)
	}
	now := l.now().UTC()
	if rec.Expired(now) {
		return nil, fmt.Errorf("code for %s/%s: %w", subjectID, channel, domain.ErrCodeExpired)
	}
	if rec.Code != code {
		return nil, fmt.Errorf("code for %s/%s: %w", subjectID, channel, domain.ErrCodeMismatch)
	}
	if err := l.store.MarkConsumed(ctx, subjectID, channel); err != nil {
		return nil, err
	}
	return domain.NewSignatureArtifact(subjectID, channel, now, code), nil
}

// Peek returns the outstanding unconsumed record without burning it. Used by
// the bot to deliver a code that was generated at link-issuance time.
func (l *Ledger) Peek(ctx context.Context, subjectID, channel string) (*domain.VerificationRecord, error) {
	rec, err := l.store.Get(ctx, subjectID, channel)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no code issued for %s/%s: %w", subjectID, channel, domain.ErrCodeNotFound)
		}
		return nil, err
	}
	if rec.Consumed {
		return nil, fmt.Errorf("code for %s/%s: %w", subjectID, channel, domain.ErrCodeAlreadyUsed)
	}
	if rec.Expired(l.now().UTC()) {
		return nil, fmt.Errorf("code for %s/%s: %w", subjectID, channel, domain.ErrCodeExpired)
	}
	return rec, nil
}
