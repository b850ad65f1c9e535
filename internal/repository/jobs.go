package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joseph-ayodele/warranty-tracker/constants"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
)

const jobColumns = `id, user_id, document_id, product_id, status, error, created_at, updated_at`

// JobRepository persists extraction jobs. Status changes are conditional on the
// predecessor state, so a job can never move backwards.
type JobRepository struct {
	ext sqlx.ExtContext
	now func() time.Time
	log *slog.Logger
}

// Create inserts job in PENDING. A zero ID is replaced with a new UUID.
func (r *JobRepository) Create(ctx context.Context, job *entity.ExtractionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = constants.JobStatusPending
	job.Error, job.ProductID = nil, nil
	job.CreatedAt = r.now()
	job.UpdatedAt = job.CreatedAt

	q := r.ext.Rebind(`INSERT INTO extraction_jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.ext.ExecContext(ctx, q,
		job.ID, job.UserID, job.DocumentID, job.ProductID, job.Status, job.Error, job.CreatedAt, job.UpdatedAt,
	); err != nil {
		r.log.Error("repo.job.create_failed", "job_id", job.ID, "err", err)
		return dbErr(err, "create job")
	}
	r.log.Debug("repo.job.created", "job_id", job.ID, "document_id", job.DocumentID)
	return nil
}

// GetForUser returns the job only when it belongs to userID.
func (r *JobRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*entity.ExtractionJob, error) {
	var job entity.ExtractionJob
	q := r.ext.Rebind(`SELECT ` + jobColumns + ` FROM extraction_jobs WHERE id = ? AND user_id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &job, q, id, userID); err != nil {
		return nil, notFound(err, "get job")
	}
	return &job, nil
}

// ListForUser returns the newest jobs first.
func (r *JobRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.ExtractionJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []entity.ExtractionJob
	q := r.ext.Rebind(`SELECT ` + jobColumns + ` FROM extraction_jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := sqlx.SelectContext(ctx, r.ext, &jobs, q, userID, limit); err != nil {
		return nil, dbErr(err, "list jobs")
	}
	return jobs, nil
}

// MarkProcessing moves a PENDING job to PROCESSING.
func (r *JobRepository) MarkProcessing(ctx context.Context, id, userID uuid.UUID) error {
	return r.transition(ctx, id, userID, constants.JobStatusProcessing, nil, nil)
}

// MarkCompleted moves a PROCESSING job to COMPLETED and links its product.
// warning is the already-masked non-fatal message, if any.
func (r *JobRepository) MarkCompleted(ctx context.Context, id, userID, productID uuid.UUID, warning *string) error {
	return r.transition(ctx, id, userID, constants.JobStatusCompleted, warning, &productID)
}

// MarkFailed moves a PROCESSING job to FAILED with an already-masked message.
func (r *JobRepository) MarkFailed(ctx context.Context, id, userID uuid.UUID, message string) error {
	return r.transition(ctx, id, userID, constants.JobStatusFailed, &message, nil)
}

func (r *JobRepository) transition(ctx context.Context, id, userID uuid.UUID, to constants.JobStatus, errMsg *string, productID *uuid.UUID) error {
	from, ok := constants.PredecessorOf(to)
	if !ok {
		return fmt.Errorf("transition to %s: %w", to, common.ErrInvalidTransition)
	}

	q := r.ext.Rebind(`UPDATE extraction_jobs
		SET status = ?, error = ?, product_id = COALESCE(?, product_id), updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ?`)
	res, err := r.ext.ExecContext(ctx, q, to, errMsg, productID, r.now(), id, userID, from)
	if err != nil {
		r.log.Error("repo.job.transition_failed", "job_id", id, "to", to, "err", err)
		return dbErr(err, "update job status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err, "update job status")
	}
	if n == 1 {
		r.log.Debug("repo.job.transitioned", "job_id", id, "from", from, "to", to)
		return nil
	}

	// zero rows: either the job is missing or it is not in the predecessor state
	current, err := r.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	r.log.Error("repo.job.transition_rejected", "job_id", id, "current", current.Status, "to", to)
	return fmt.Errorf("job %s is %s, cannot move to %s: %w", id, current.Status, to, common.ErrInvalidTransition)
}
