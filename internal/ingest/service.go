package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/internal/async"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
	"github.com/joseph-ayodele/warranty-tracker/internal/redact"
	"github.com/joseph-ayodele/warranty-tracker/internal/repository"
)

const maxTitleRunes = 255

// Service creates the document and its PENDING job, then hands the job to the queue.
// It returns as soon as the job is queued; extraction runs in the background.
type Service struct {
	store     Store
	queue     async.Queue
	uploadDir string
	strict    bool
	logger    *slog.Logger
}

// NewService builds the submitter. strict is the redaction mode applied to stored titles.
func NewService(store Store, queue async.Queue, uploadDir string, strict bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, queue: queue, uploadDir: uploadDir, strict: strict, logger: logger}
}

// Submit registers an existing file for userID.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, path string) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("abs path: %w", err)
	}
	return s.submit(ctx, userID, abs, titleFor(abs))
}

func (s *Service) submit(ctx context.Context, userID uuid.UUID, abs, title string) (Result, error) {
	if err := validateFile(userID, abs); err != nil {
		return Result{}, err
	}

	// file names are user input and can carry a phone or card number
	doc := &entity.Document{UserID: userID, Title: redact.Text(title, s.strict), ImagePath: abs}
	job := &entity.ExtractionJob{UserID: userID}
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		if err := r.Documents.Create(ctx, doc); err != nil {
			return err
		}
		job.DocumentID = &doc.ID
		return r.Jobs.Create(ctx, job)
	})
	if err != nil {
		s.logger.Error("ingest.create.failed", "path", abs, "err", err)
		return Result{}, err
	}

	out := Result{SourcePath: abs, DocumentID: doc.ID, JobID: job.ID, Title: doc.Title, QueuedAt: time.Now().UTC()}
	err = s.queue.Enqueue(ctx, async.Job{
		JobID:       job.ID,
		DocumentID:  doc.ID,
		UserID:      userID,
		ImagePath:   abs,
		SubmittedAt: out.QueuedAt,
		RequestID:   common.RequestIDFromContext(ctx),
	})
	if err != nil {
		// the job stays PENDING and can be resubmitted
		s.logger.Error("ingest.enqueue.failed", "job_id", job.ID, "err", err)
		return out, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	s.logger.Info("ingest.submitted", "job_id", job.ID, "document_id", doc.ID)
	return out, nil
}

// Upload stores the stream under the upload directory and submits it.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedExt(ext) {
		return Result{}, common.NewAppError("VALIDATION_ERROR", "unsupported file type",
			fmt.Errorf("%w: extension %q", common.ErrInvalidInput, ext))
	}
	dir := filepath.Join(s.uploadDir, userID.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Result{}, fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(dir, uuid.NewString()+ext)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return Result{}, fmt.Errorf("create upload: %w", err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dst)
		return Result{}, fmt.Errorf("write upload: %w", err)
	}
	s.logger.Info("ingest.upload.stored", "bytes", n, "ext", ext)

	return s.submit(ctx, userID, dst, titleFor(filename))
}

// SubmitDirectory walks root and submits every accepted file.
func (s *Service) SubmitDirectory(ctx context.Context, userID uuid.UUID, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		results []Result
		stats   DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := s.Submit(ctx, userID, path)
		if err != nil {
			results = append(results, Result{SourcePath: path, JobID: r.JobID, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func validateFile(userID uuid.UUID, path string) error {
	if userID == uuid.Nil {
		return common.NewAppError("VALIDATION_ERROR", "user id is required", common.ErrInvalidInput)
	}
	if !AllowedExt(filepath.Ext(path)) {
		return common.NewAppError("VALIDATION_ERROR", "unsupported file type",
			fmt.Errorf("%w: %s", common.ErrInvalidInput, filepath.Ext(path)))
	}
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if st.IsDir() {
		return common.NewAppError("VALIDATION_ERROR", "path is a directory", common.ErrInvalidInput)
	}
	return nil
}

func titleFor(path string) string {
	t := filepath.Base(path)
	if utf8.RuneCountInString(t) <= maxTitleRunes {
		return t
	}
	return string([]rune(t)[:maxTitleRunes])
}
