// Package pipeline runs one extraction job from OCR to a persisted product.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/constants"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
	"github.com/joseph-ayodele/warranty-tracker/internal/extract"
	"github.com/joseph-ayodele/warranty-tracker/internal/pdfpages"
	"github.com/joseph-ayodele/warranty-tracker/internal/redact"
	"github.com/joseph-ayodele/warranty-tracker/internal/repository"
)

var (
	ErrEmptyOCR         = errors.New("OCR returned empty text")
	ErrDocumentNotFound = errors.New("document not found")
)

const defaultFailureWriteTimeout = 5 * time.Second

// Store is the persistence the processor writes through. *repository.Store satisfies it.
type Store interface {
	Repos() repository.Repos
	InTx(ctx context.Context, fn func(repository.Repos) error) error
}

// Request identifies one job run.
type Request struct {
	JobID      uuid.UUID `json:"job_id"`
	DocumentID uuid.UUID `json:"document_id"`
	UserID     uuid.UUID `json:"user_id"`
	ImagePath  string    `json:"image_path"`
}

// Options tune a Processor.
type Options struct {
	Strict              bool
	PageLimit           int
	FailureWriteTimeout time.Duration
}

// Processor coordinates OCR, rule extraction, the LLM fallback and the final write.
type Processor struct {
	store  Store
	ocr    extract.TextExtractor
	llm    extract.FieldExtractor
	redact redact.Engine
	opts   Options
	Logger *slog.Logger
}

func NewProcessor(store Store, ocr extract.TextExtractor, llm extract.FieldExtractor, opts Options, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = constants.PDFPageLimit
	}
	if opts.FailureWriteTimeout <= 0 {
		opts.FailureWriteTimeout = defaultFailureWriteTimeout
	}
	return &Processor{
		store:  store,
		ocr:    ocr,
		llm:    llm,
		redact: redact.New(opts.Strict),
		opts:   opts,
		Logger: logger,
	}
}

// ProcessDocumentJob moves the job to PROCESSING, runs extraction, and ends it in
// COMPLETED or FAILED. The outcome is observed through the job row. The returned
// error is non-nil only when the job state itself could not be recorded.
func (p *Processor) ProcessDocumentJob(ctx context.Context, req Request) (err error) {
	log := p.Logger.With("job_id", req.JobID, "document_id", req.DocumentID)

	if err := p.store.Repos().Jobs.MarkProcessing(ctx, req.JobID, req.UserID); err != nil {
		if errors.Is(err, common.ErrInvalidTransition) {
			log.Error("pipeline.transition.rejected", "to", constants.JobStatusProcessing, "err", err)
		} else {
			log.Warn("pipeline.start.failed", "err", err)
		}
		return err
	}
	log.Info("pipeline.processing")

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline.panic", "panic", p.redact.Text(fmt.Sprint(r)))
			err = p.fail(ctx, req, log, fmt.Errorf("panic: %v", r))
		}
	}()

	productID, warning, runErr := p.run(ctx, req, log)
	if runErr != nil {
		return p.fail(ctx, req, log, runErr)
	}
	log.Info("pipeline.completed", "product_id", productID, "warning", warning != "")
	return nil
}

func (p *Processor) run(ctx context.Context, req Request, log *slog.Logger) (uuid.UUID, string, error) {
	var (
		pages   []int
		warning string
	)
	if constants.IsPDF(req.ImagePath) {
		sel := pdfpages.SelectFile(req.ImagePath, p.opts.PageLimit)
		pages, warning = sel.Pages, sel.Warning
		if sel.Truncated() {
			log.Warn("pipeline.pdf.truncated", "pages", len(sel.Pages), "count", sel.Count)
		}
	}

	raw, err := p.ocr.ExtractText(ctx, req.ImagePath, pages)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("ocr: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, "", ErrEmptyOCR
	}
	log.Info("pipeline.ocr.ok", "chars", len(raw), "pages", len(pages))

	repos := p.store.Repos()
	doc, err := repos.Documents.GetForUser(ctx, req.DocumentID, req.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return uuid.Nil, "", ErrDocumentNotFound
		}
		return uuid.Nil, "", err
	}

	maskedRaw := p.redact.Text(raw)
	if err := repos.Documents.SetRawText(ctx, doc.ID, req.UserID, maskedRaw); err != nil {
		return uuid.Nil, "", err
	}

	ruleFields := extract.ExtractWithRules(raw)
	llmFields := extract.Fields{}
	if extract.NeedsLLM(ruleFields) && p.llm != nil {
		if got := p.llm.ExtractFields(ctx, raw); got != nil {
			llmFields = got
		}
		log.Info("pipeline.llm.used", "keys", llmFields.Keys())
	}
	fields := extract.NormalizeFields(extract.MergeFields(ruleFields, llmFields))

	product := p.buildProduct(fields, req, maskedRaw)
	parsed := p.redactMap(extract.SerializeFields(fields))
	evidence := p.redactMap(map[string]any{
		"rule_fields": ruleFields.Keys(),
		"llm_fields":  llmFields.Keys(),
	})

	var maskedWarning *string
	if warning != "" {
		w := p.redact.Text(warning)
		maskedWarning = &w
	}

	err = p.store.InTx(ctx, func(tx repository.Repos) error {
		if err := tx.Products.Create(ctx, product); err != nil {
			return err
		}
		if err := tx.Documents.LinkProduct(ctx, doc.ID, req.UserID, product.ID, parsed, evidence); err != nil {
			return err
		}
		return tx.Jobs.MarkCompleted(ctx, req.JobID, req.UserID, product.ID, maskedWarning)
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("final write: %w", err)
	}
	return product.ID, warning, nil
}

// fail records FAILED with a masked message. It runs on a context detached from the
// job deadline so an expired job is still closed out.
func (p *Processor) fail(ctx context.Context, req Request, log *slog.Logger, cause error) error {
	msg := p.redact.Text(cause.Error())
	log.Error("pipeline.failed", "err", msg)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FailureWriteTimeout)
	defer cancel()
	if err := p.store.Repos().Jobs.MarkFailed(wctx, req.JobID, req.UserID, msg); err != nil {
		log.Error("pipeline.mark_failed.failed", "err", err)
		return err
	}
	return nil
}

func (p *Processor) redactMap(m map[string]any) entity.JSONMap {
	out, ok := p.redact.Structure(m, nil).(map[string]any)
	if !ok {
		return entity.JSONMap{}
	}
	return entity.JSONMap(out)
}

// buildProduct maps the normalized fields onto a product. String columns are
// redacted like every other persisted value.
func (p *Processor) buildProduct(f extract.Fields, req Request, maskedRaw string) *entity.Product {
	title := strings.TrimSpace(f.String(constants.FieldTitle))
	if title == "" {
		title = constants.DefaultProductTitle
	}
	prod := &entity.Product{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Title:           p.redact.Text(title),
		Category:        p.optString(f.String(constants.FieldProductCategory)),
		Store:           p.optString(f.String(constants.FieldStore)),
		OrderID:         p.optString(f.String(constants.FieldOrderID)),
		ASContact:       p.optString(f.String(constants.FieldASContact)),
		PurchaseDate:    optDate(f, constants.FieldPurchaseDate),
		RefundDeadline:  optDate(f, constants.FieldRefundDeadline),
		WarrantyEndDate: optDate(f, constants.FieldWarrantyEndDate),
		ImagePath:       req.ImagePath,
		RawText:         &maskedRaw,
	}
	if n, ok := f.Amount(constants.FieldAmount); ok {
		prod.Amount = &n
	}
	return prod
}

func (p *Processor) optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = p.redact.Text(s)
	return &s
}

func optDate(f extract.Fields, name string) *time.Time {
	if d, ok := f.Date(name); ok {
		return &d
	}
	return nil
}
