package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/internal/users"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
)

func TestTokenCleanupJobDeletesStaleTokens(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeTokenRepo{deletedRows: 7}
	job := newTokenCleanupJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.UTC().Add(-defaultTokenCleanupAge)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestTokenCleanupJobPropagatesErrors(t *testing.T) {
	repo := &fakeTokenRepo{err: errors.New("boom")}
	job := newTokenCleanupJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newTokenCleanupJob(t *testing.T, repo *fakeTokenRepo) *tokenCleanupJob {
	t.Helper()
	jobIface, err := NewTokenCleanupJob(TokenCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         fakeTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewTokenCleanupJob: %v", err)
	}
	job, ok := jobIface.(*tokenCleanupJob)
	if !ok {
		t.Fatalf("expected tokenCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeTokenRepo struct {
	lastCutoff  time.Time
	deletedRows int64
	err         error
	called      int
}

func (f *fakeTokenRepo) WithTx(tx *gorm.DB) users.TokenRepository { return f }

func (f *fakeTokenRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return nil
}

func (f *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTokenRepo) MarkUsed(ctx context.Context, id int64) error { return nil }

func (f *fakeTokenRepo) InvalidateForUser(ctx context.Context, userID int64) error { return nil }

func (f *fakeTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deletedRows, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
