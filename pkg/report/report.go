// Package report formats valuation and risk results for the console.
// Monetary amounts are rounded half away from zero to cents; per-unit
// sensitivities to four decimals.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
)

// Money rounds v to two decimals
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Unit rounds v to four decimals
func Unit(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// Writer renders results as aligned label/value rows
type Writer struct {
	tw *tabwriter.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (w *Writer) row(label, value string) {
	fmt.Fprintf(w.tw, "%s\t%s\t\n", label, value)
}

// Section writes a heading line
func (w *Writer) Section(title string) {
	fmt.Fprintf(w.tw, "%s\t\t\n", title)
}

// Price writes a plain valuation
func (w *Writer) Price(res *models.PriceResult) {
	w.row("Fixed leg PV", Money(res.FixedLegPV))
	w.row("Float leg PV", Money(res.FloatLegPV))
	w.row("Swap PV", Money(res.SwapPV))
	w.row("PV01 (annuity)", Money(res.PV01))
}

// Tangent writes one tangent scenario under label
func (w *Writer) Tangent(label string, res *models.TangentResult) {
	w.row(label, Money(res.SwapPVDot))
}

// Adjoint writes every adjoint risk constituent
func (w *Writer) Adjoint(res *models.AdjointResult) {
	w.row("Adjoint swap PV", Money(res.SwapPV))
	w.row("Adjoint PV01", Money(res.PV01Risk))
	w.row("Adjoint discount risk", Money(res.DiscountRisk))
	w.row("Adjoint DV01", Money(res.DV01))
	w.row("dPV/dz", Money(res.ZeroRateSensitivity))
}

// Ladder writes one row per forward rate bucket
func (w *Writer) Ladder(buckets []models.ForwardBucket) {
	for _, b := range buckets {
		w.row(fmt.Sprintf("Forward %d (t=%s)", b.Period, decimal.NewFromFloat(b.Time).String()), Money(b.PV01))
	}
}

// Report writes a full risk report
func (w *Writer) Report(r *models.RiskReport) {
	if r.SwapID != "" {
		w.Section("Swap " + r.SwapID)
	}
	w.Price(r.Price)
	w.row("Tangent PV01", Money(r.TangentPV01))
	w.row("Tangent discount risk", Money(r.TangentDiscountRisk))
	w.row("Tangent DV01", Money(r.TangentDV01))
	w.Adjoint(r.Adjoint)
	if r.FiniteDifferenceDV01 != nil {
		w.row("Bumped DV01", Money(*r.FiniteDifferenceDV01))
	}
	w.Ladder(r.Ladder)
}

// Values writes per-unit values such as gradient components
func (w *Writer) Values(label string, values ...float64) {
	for i, v := range values {
		w.row(fmt.Sprintf("%s[%d]", label, i+1), Unit(v))
	}
}

// Flush writes buffered rows to the underlying writer
func (w *Writer) Flush() error {
	return w.tw.Flush()
}
