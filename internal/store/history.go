package store

import (
	"sync"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// InMemoryReportHistory keeps the most recent risk reports per swap
type InMemoryReportHistory struct {
	reports map[string][]*models.RiskReport
	limit   int
	mu      sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryReportHistory creates a history holding at most limit reports per swap
func NewInMemoryReportHistory(limit int) *InMemoryReportHistory {
	if limit <= 0 {
		limit = 50
	}
	return &InMemoryReportHistory{
		reports: make(map[string][]*models.RiskReport),
		limit:   limit,
		log:     logger.GetLogger("store.history"),
	}
}

// Append records a report, dropping the oldest once the limit is reached.
// Reports without a swap ID are not kept.
func (h *InMemoryReportHistory) Append(report *models.RiskReport) {
	if report == nil || report.SwapID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	reports := append(h.reports[report.SwapID], report)
	if len(reports) > h.limit {
		reports = reports[len(reports)-h.limit:]
	}
	h.reports[report.SwapID] = reports
}

// GetHistory returns up to n of the most recent reports for a swap, newest first.
// n <= 0 returns everything kept.
func (h *InMemoryReportHistory) GetHistory(swapID string, n int) ([]*models.RiskReport, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	reports, exists := h.reports[swapID]
	if !exists {
		return nil, errors.NotFound("no risk history for swap: " + swapID)
	}

	if n <= 0 || n > len(reports) {
		n = len(reports)
	}

	out := make([]*models.RiskReport, 0, n)
	for i := len(reports) - 1; i >= len(reports)-n; i-- {
		out = append(out, reports[i])
	}
	return out, nil
}

// Latest returns the newest report for a swap
func (h *InMemoryReportHistory) Latest(swapID string) (*models.RiskReport, error) {
	reports, err := h.GetHistory(swapID, 1)
	if err != nil {
		return nil, err
	}
	return reports[0], nil
}

// Forget drops every report of a swap
func (h *InMemoryReportHistory) Forget(swapID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.reports[swapID]; ok {
		h.log.Debugf("Dropping risk history for swap %s", swapID)
	}
	delete(h.reports, swapID)
}
