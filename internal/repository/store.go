package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
)

// Repos groups the table repositories bound to one handle, either the pool or a transaction.
type Repos struct {
	Jobs      *JobRepository
	Documents *DocumentRepository
	Products  *ProductRepository
}

func newRepos(ext sqlx.ExtContext, now func() time.Time, logger *slog.Logger) Repos {
	return Repos{
		Jobs:      &JobRepository{ext: ext, now: now, log: logger},
		Documents: &DocumentRepository{ext: ext, now: now, log: logger},
		Products:  &ProductRepository{ext: ext, now: now, log: logger},
	}
}

// Store owns the connection and hands out repositories.
type Store struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *slog.Logger
}

func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

// Repos returns repositories that run each statement on its own.
func (s *Store) Repos() Repos {
	return newRepos(s.db, s.now, s.logger)
}

// InTx runs fn inside one transaction; any error or panic rolls it back.
func (s *Store) InTx(ctx context.Context, fn func(Repos) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin transaction", errors.Join(common.ErrDatabase, err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("repository.tx.rollback_failed", "error", rbErr)
			}
		}
	}()
	if err = fn(newRepos(tx, s.now, s.logger)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit transaction", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

// notFound maps sql.ErrNoRows onto common.ErrNotFound and wraps the rest.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, errors.Join(common.ErrDatabase, err))
}

func dbErr(err error, what string) error {
	return fmt.Errorf("%s: %w", what, errors.Join(common.ErrDatabase, err))
}
