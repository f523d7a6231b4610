package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/internal/users"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
)

const defaultTokenCleanupAge = 24 * time.Hour

// txRunner abstracts the transactional database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type TokenCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository users.TokenRepository
	// Age is the grace period an expired or used token is kept before
	// removal.
	Age time.Duration
}

func NewTokenCleanupJob(params TokenCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("token repository required")
	}
	age := params.Age
	if age <= 0 {
		age = defaultTokenCleanupAge
	}
	return &tokenCleanupJob{
		logg: params.Logger,
		db:   params.DB,
		repo: params.Repository,
		age:  age,
		now:  time.Now,
	}, nil
}

type tokenCleanupJob struct {
	logg *logger.Logger
	db   txRunner
	repo users.TokenRepository
	age  time.Duration
	now  func() time.Time
}

func (j *tokenCleanupJob) Name() string { return "reset-token-cleanup" }

func (j *tokenCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.WithTx(tx).DeleteExpiredBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset token cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "reset token cleanup complete")
	return nil
}
