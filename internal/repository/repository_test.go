package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/warranty-tracker/constants"
	"github.com/joseph-ayodele/warranty-tracker/db/ent/schema"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
)

func newTestStore(t *testing.T) (*Store, *DB) {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return NewStore(db.DB, nil), db
}

func seedJob(t *testing.T, s *Store, userID uuid.UUID) (*entity.Document, *entity.ExtractionJob) {
	t.Helper()
	ctx := context.Background()
	doc := &entity.Document{UserID: userID, Title: "receipt.png", ImagePath: "/data/receipt.png"}
	job := &entity.ExtractionJob{UserID: userID}
	require.NoError(t, s.InTx(ctx, func(r Repos) error {
		if err := r.Documents.Create(ctx, doc); err != nil {
			return err
		}
		job.DocumentID = &doc.ID
		return r.Jobs.Create(ctx, job)
	}))
	return doc, job
}

func TestJobLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	doc, job := seedJob(t, s, user)
	repos := s.Repos()

	got, err := repos.Jobs.GetForUser(ctx, job.ID, user)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusPending, got.Status)
	assert.Equal(t, doc.ID, *got.DocumentID)
	assert.Nil(t, got.ProductID)

	require.NoError(t, repos.Jobs.MarkProcessing(ctx, job.ID, user))

	// completing requires a real product row
	p := &entity.Product{UserID: user, Title: "냉장고", ImagePath: doc.ImagePath, Amount: entity.Ptr(int64(1290000))}
	require.NoError(t, repos.Products.Create(ctx, p))
	warning := "PDF pages truncated: processed 3 of 4"
	require.NoError(t, repos.Jobs.MarkCompleted(ctx, job.ID, user, p.ID, &warning))

	got, err = repos.Jobs.GetForUser(ctx, job.ID, user)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusCompleted, got.Status)
	assert.Equal(t, p.ID, *got.ProductID)
	assert.Equal(t, warning, *got.Error)

	// terminal states do not move
	err = repos.Jobs.MarkFailed(ctx, job.ID, user, "late failure")
	require.ErrorIs(t, err, common.ErrInvalidTransition)
	err = repos.Jobs.MarkProcessing(ctx, job.ID, user)
	require.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestJobTransitionsGuarded(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	_, job := seedJob(t, s, user)
	jobs := s.Repos().Jobs

	// PENDING cannot jump to FAILED or COMPLETED
	require.ErrorIs(t, jobs.MarkFailed(ctx, job.ID, user, "x"), common.ErrInvalidTransition)
	require.ErrorIs(t, jobs.MarkCompleted(ctx, job.ID, user, uuid.New(), nil), common.ErrInvalidTransition)

	// another user's job looks missing
	require.ErrorIs(t, jobs.MarkProcessing(ctx, job.ID, uuid.New()), common.ErrNotFound)
	_, err := jobs.GetForUser(ctx, job.ID, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, jobs.MarkProcessing(ctx, job.ID, user))
	require.NoError(t, jobs.MarkFailed(ctx, job.ID, user, "OCR returned empty text"))
	got, err := jobs.GetForUser(ctx, job.ID, user)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	assert.Nil(t, got.ProductID)
	assert.Equal(t, "OCR returned empty text", *got.Error)

	list, err := jobs.ListForUser(ctx, user, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDocumentAndProductRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	doc, _ := seedJob(t, s, user)
	repos := s.Repos()

	require.NoError(t, repos.Documents.SetRawText(ctx, doc.ID, user, "카드번호: ****-****-****-3456"))
	require.ErrorIs(t, repos.Documents.SetRawText(ctx, doc.ID, uuid.New(), "x"), common.ErrNotFound)

	pd := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	p := &entity.Product{
		UserID:       user,
		Title:        "냉장고",
		Store:        entity.Ptr("전자랜드"),
		PurchaseDate: &pd,
		Amount:       entity.Ptr(int64(12000)),
		ImagePath:    doc.ImagePath,
	}
	require.NoError(t, s.InTx(ctx, func(r Repos) error {
		if err := r.Products.Create(ctx, p); err != nil {
			return err
		}
		return r.Documents.LinkProduct(ctx, doc.ID, user, p.ID,
			entity.JSONMap{"store": "전자랜드", "purchase_date": "2024-01-10"},
			entity.JSONMap{"rule_fields": []string{"purchase_date", "store"}, "llm_fields": []string{}})
	}))

	gotDoc, err := repos.Documents.GetForUser(ctx, doc.ID, user)
	require.NoError(t, err)
	assert.Equal(t, p.ID, *gotDoc.ProductID)
	assert.Equal(t, "카드번호: ****-****-****-3456", *gotDoc.RawText)
	assert.Equal(t, "2024-01-10", gotDoc.ParsedFields["purchase_date"])
	assert.Equal(t, []any{"purchase_date", "store"}, gotDoc.Evidence["rule_fields"])

	gotP, err := repos.Products.GetForUser(ctx, p.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "전자랜드", *gotP.Store)
	assert.Equal(t, int64(12000), *gotP.Amount)
	require.NotNil(t, gotP.PurchaseDate)
	assert.Equal(t, "2024-01-10", gotP.PurchaseDate.Format(time.DateOnly))
	assert.Nil(t, gotP.RefundDeadline)

	list, err := repos.Products.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = repos.Products.GetForUser(ctx, p.ID, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	doc, _ := seedJob(t, s, user)

	var productID uuid.UUID
	err := s.InTx(ctx, func(r Repos) error {
		p := &entity.Product{UserID: user, Title: "t", ImagePath: "/x"}
		if err := r.Products.Create(ctx, p); err != nil {
			return err
		}
		productID = p.ID
		// wrong owner: zero rows, the whole tx must roll back
		return r.Documents.LinkProduct(ctx, doc.ID, uuid.New(), p.ID, nil, nil)
	})
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.Repos().Products.GetForUser(ctx, productID, user)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestMigrationsMatchEntSchema(t *testing.T) {
	_, db := newTestStore(t)
	for table, fields := range schema.Tables() {
		var cols []struct {
			CID     int     `db:"cid"`
			Name    string  `db:"name"`
			Type    string  `db:"type"`
			NotNull bool    `db:"notnull"`
			Default *string `db:"dflt_value"`
			PK      int     `db:"pk"`
		}
		require.NoError(t, db.Select(&cols, "SELECT * FROM pragma_table_info('"+table+"')"))
		names := make([]string, 0, len(cols))
		for _, c := range cols {
			names = append(names, c.Name)
		}
		assert.Equal(t, fields, names, table)
	}
}

func TestHealthCheck(t *testing.T) {
	_, db := newTestStore(t)
	require.NoError(t, HealthCheck(context.Background(), db, time.Second, nil))
}

func TestLogEventNames(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewStore(db.DB, logger)
	user := uuid.New()
	_, job := seedJob(t, s, user)

	dup := &entity.ExtractionJob{ID: job.ID, UserID: user}
	require.Error(t, s.Repos().Jobs.Create(ctx, dup))
	require.ErrorIs(t, s.Repos().Jobs.MarkCompleted(ctx, job.ID, user, uuid.New(), nil), common.ErrInvalidTransition)

	event := regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)+$`)
	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec struct {
			Msg string `json:"msg"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Regexp(t, event, rec.Msg)
		msgs = append(msgs, rec.Msg)
	}
	assert.Contains(t, msgs, "repo.job.created")
	assert.Contains(t, msgs, "repo.job.create_failed")
	assert.Contains(t, msgs, "repo.job.transition_rejected")
}
