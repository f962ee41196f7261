package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rzzdr/swap-aad-risk/internal/risk"
	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// SwapRepository stores swaps by ID
type SwapRepository interface {
	GetSwap(id string) (*models.SwapSpec, error)
	GetAllSwaps() ([]*models.SwapSpec, error)
	SaveSwap(spec *models.SwapSpec) error
	DeleteSwap(id string) error
}

// ReportHistory serves past risk reports
type ReportHistory interface {
	GetHistory(swapID string, n int) ([]*models.RiskReport, error)
	Forget(swapID string)
}

// TangentRequest asks for one directional derivative of a swap's PV.
// Omitted forward rate dots default to UniformForwardDot on every period.
type TangentRequest struct {
	Swap              *models.SwapSpec `json:"swap" binding:"required"`
	ForwardRateDots   []float64        `json:"forward_rate_dots"`
	UniformForwardDot float64          `json:"uniform_forward_dot"`
	ZeroRateDot       float64          `json:"zero_rate_dot"`
}

// AdjointRequest asks for one adjoint sweep; SwapPVBar defaults to 1
type AdjointRequest struct {
	Swap      *models.SwapSpec `json:"swap" binding:"required"`
	SwapPVBar *float64         `json:"swap_pv_bar"`
}

// BatchRequest asks for risk reports on many swaps
type BatchRequest struct {
	Swaps []*models.SwapSpec `json:"swaps" binding:"required"`
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	service *risk.Service
	swaps   SwapRepository
	history ReportHistory
	log     *logger.Logger
}

// CreateHandlers creates new API handlers. history may be nil.
func CreateHandlers(service *risk.Service, swaps SwapRepository, history ReportHistory) *Handlers {
	return &Handlers{
		service: service,
		swaps:   swaps,
		history: history,
		log:     logger.GetLogger("api.handlers"),
	}
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

// PriceHandler values the swap in the request body
func (h *Handlers) PriceHandler(c *gin.Context) {
	var spec models.SwapSpec
	if !h.bind(c, &spec) {
		return
	}

	res, err := h.service.Price(&spec)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// TangentHandler runs one tangent-mode valuation
func (h *Handlers) TangentHandler(c *gin.Context) {
	var req TangentRequest
	if !h.bind(c, &req) {
		return
	}

	dots := req.ForwardRateDots
	if dots == nil {
		dots = swap.UniformForwardShift(req.Swap, req.UniformForwardDot)
	}

	res, err := h.service.Tangent(req.Swap, dots, req.ZeroRateDot)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AdjointHandler runs one adjoint sweep
func (h *Handlers) AdjointHandler(c *gin.Context) {
	var req AdjointRequest
	if !h.bind(c, &req) {
		return
	}

	seed := 1.0
	if req.SwapPVBar != nil {
		seed = *req.SwapPVBar
	}

	res, err := h.service.Adjoint(req.Swap, seed)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReportHandler computes the full risk report of the swap in the request body
func (h *Handlers) ReportHandler(c *gin.Context) {
	var spec models.SwapSpec
	if !h.bind(c, &spec) {
		return
	}

	report, err := h.service.Report(c.Request.Context(), &spec)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// BatchHandler reports on many swaps concurrently
func (h *Handlers) BatchHandler(c *gin.Context) {
	var req BatchRequest
	if !h.bind(c, &req) {
		return
	}

	reports, err := h.service.Batch(c.Request.Context(), req.Swaps)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// CreateSwapHandler validates and stores a swap. Swaps posted without an ID get one.
func (h *Handlers) CreateSwapHandler(c *gin.Context) {
	var spec models.SwapSpec
	if !h.bind(c, &spec) {
		return
	}
	if spec.ID == "" {
		spec.ID = "swap_" + uuid.New().String()
	}

	if err := swap.Validate(&spec); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.swaps.SaveSwap(&spec); err != nil {
		h.writeError(c, err)
		return
	}

	h.log.Infof("Stored swap %s", spec.ID)
	c.JSON(http.StatusCreated, &spec)
}

// ListSwapsHandler returns every stored swap
func (h *Handlers) ListSwapsHandler(c *gin.Context) {
	swaps, err := h.swaps.GetAllSwaps()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"swaps": swaps,
		"count": len(swaps),
	})
}

// GetSwapHandler returns one stored swap
func (h *Handlers) GetSwapHandler(c *gin.Context) {
	spec, err := h.swaps.GetSwap(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, spec)
}

// DeleteSwapHandler removes a stored swap and its report history
func (h *Handlers) DeleteSwapHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.swaps.DeleteSwap(id); err != nil {
		h.writeError(c, err)
		return
	}
	if h.history != nil {
		h.history.Forget(id)
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
		"id":     id,
	})
}

// SwapReportHandler computes the risk report of a stored swap
func (h *Handlers) SwapReportHandler(c *gin.Context) {
	report, err := h.service.ReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SwapHistoryHandler returns past reports of a swap, newest first
func (h *Handlers) SwapHistoryHandler(c *gin.Context) {
	if h.history == nil {
		h.writeError(c, errors.Unavailable("report history is disabled", nil))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	reports, err := h.history.GetHistory(c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"swap_id": c.Param("id"),
		"reports": reports,
		"count":   len(reports),
	})
}

func (h *Handlers) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

// writeError maps typed errors onto status codes. Schedule errors carry the
// offending leg and sequence so clients can point at the bad input.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var se *swap.ScheduleError
	if errors.As(err, &se) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    err.Error(),
			"type":     errors.ErrorTypeSchedule.String(),
			"leg":      se.Leg,
			"sequence": se.Sequence,
			"expected": se.Expected,
			"got":      se.Got,
		})
		return
	}

	kind := errors.TypeOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errors.ErrorTypeInvalidArgument:
		status = http.StatusUnprocessableEntity
	case errors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case errors.ErrorTypeUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"type":  kind.String(),
	})
}
