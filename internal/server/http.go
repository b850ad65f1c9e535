package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
)

const (
	userHeader    = "X-User-Id"
	maxUploadSize = 32 << 20
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HealthFunc reports whether dependencies are reachable.
type HealthFunc func(c *gin.Context) error

// NewRouter builds the HTTP API. The caller identity comes from the X-User-Id header.
func NewRouter(svc *Service, strict bool, healthy HealthFunc, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(RequestID(), Logging(logger), RedactResponse(strict, logger, "/auth"), Recovery(logger))

	h := &httpHandler{svc: svc, healthy: healthy, logger: logger}
	r.GET("/healthz", h.health)

	v1 := r.Group("/v1")
	v1.GET("/jobs", h.listJobs)
	v1.GET("/jobs/:id", h.getJob)
	v1.GET("/documents/:id", h.getDocument)
	v1.POST("/documents", h.upload)
	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.GET("/exports/products.xlsx", h.export)
	return r
}

type httpHandler struct {
	svc     *Service
	healthy HealthFunc
	logger  *slog.Logger
}

func (h *httpHandler) health(c *gin.Context) {
	if h.healthy != nil {
		if err := h.healthy(c); err != nil {
			h.logger.Warn("http.health.failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) fail(c *gin.Context, err error) {
	code, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, common.ErrNotFound):
		code, msg = http.StatusNotFound, "not found"
	case common.IsValidation(err), errors.Is(err, common.ErrInvalidInput):
		code, msg = http.StatusBadRequest, "invalid argument"
	case errors.Is(err, common.ErrInvalidTransition):
		code, msg = http.StatusConflict, "job is not in a state that allows this operation"
	default:
		h.logger.Error("http.call.failed", "path", c.FullPath(), "err", err)
	}
	resp := gin.H{"error": msg}
	var appErr *common.AppError
	if errors.As(err, &appErr) && code == http.StatusBadRequest {
		resp["error_detail"] = appErr.Message
	}
	c.JSON(code, resp)
}

func (h *httpHandler) ids(c *gin.Context, withID bool) (uuid.UUID, uuid.UUID, bool) {
	field, id := "", ""
	if withID {
		field, id = "id", c.Param("id")
	}
	userID, rid, err := parseIDs(c.GetHeader(userHeader), field, id)
	if err != nil {
		h.fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, rid, true
}

func (h *httpHandler) getJob(c *gin.Context) {
	userID, id, ok := h.ids(c, true)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK)(h.svc.GetJob(c.Request.Context(), userID, id))
}

func (h *httpHandler) getDocument(c *gin.Context) {
	userID, id, ok := h.ids(c, true)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK)(h.svc.GetDocument(c.Request.Context(), userID, id))
}

func (h *httpHandler) getProduct(c *gin.Context) {
	userID, id, ok := h.ids(c, true)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK)(h.svc.GetProduct(c.Request.Context(), userID, id))
}

func (h *httpHandler) listJobs(c *gin.Context) {
	userID, _, ok := h.ids(c, false)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	h.respond(c, http.StatusOK)(h.svc.ListJobs(c.Request.Context(), userID, limit))
}

func (h *httpHandler) listProducts(c *gin.Context) {
	userID, _, ok := h.ids(c, false)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK)(h.svc.ListProducts(c.Request.Context(), userID))
}

// upload accepts a multipart "file" field and answers 202 once the job is queued.
func (h *httpHandler) upload(c *gin.Context) {
	userID, _, ok := h.ids(c, false)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, common.NewAppError("VALIDATION_ERROR", "field 'file' is required", common.ErrValidation))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer func() { _ = f.Close() }()
	h.respond(c, http.StatusAccepted)(h.svc.UploadDocument(c.Request.Context(), userID, fh.Filename, f))
}

func (h *httpHandler) export(c *gin.Context) {
	userID, _, ok := h.ids(c, false)
	if !ok {
		return
	}
	from, err := parseDate("from", c.Query("from"))
	if err != nil {
		h.fail(c, err)
		return
	}
	to, err := parseDate("to", c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := h.svc.ExportProducts(c.Request.Context(), userID, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="products.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, data)
}

func (h *httpHandler) respond(c *gin.Context, code int) func(map[string]any, error) {
	return func(m map[string]any, err error) {
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(code, m)
	}
}
