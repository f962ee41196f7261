package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// ServiceConfig contains configuration for the risk service
type ServiceConfig struct {
	Workers          int     // Concurrent valuations in a batch
	FiniteDifference bool    // Cross-check DV01 by bump-and-reprice
	FDStep           float64 // Step along the 1bp direction, 1 means ±1bp
}

// SwapStore is the read side of the swap store used for reports by ID
type SwapStore interface {
	GetSwap(id string) (*models.SwapSpec, error)
}

// Recorder receives valuation metrics
type Recorder interface {
	RecordValuation(mode, outcome string, latency time.Duration)
	RecordScheduleError(leg string)
	RecordRisk(swapID string, pv, pv01, discountRisk, dv01 float64)
}

// Listener is called with every report the service produces
type Listener func(report *models.RiskReport)

// Service runs the standard risk scenarios of a swap on top of the engine
type Service struct {
	config    ServiceConfig
	engine    *swap.Engine
	store     SwapStore
	recorder  Recorder
	listeners []Listener
	mu        sync.RWMutex
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates a new risk service. store and recorder may be nil.
func NewService(config ServiceConfig, engine *swap.Engine, store SwapStore, recorder Recorder) *Service {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.FDStep <= 0 {
		config.FDStep = 1
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Service{
		config:   config,
		engine:   engine,
		store:    store,
		recorder: recorder,
		now:      time.Now,
		log:      logger.GetLogger("risk.service"),
	}
}

// Subscribe registers a listener for computed reports
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) publish(report *models.RiskReport) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, l := range listeners {
		l(report)
	}
}

// Engine returns the underlying valuation engine
func (s *Service) Engine() *swap.Engine {
	return s.engine
}

// Price values a swap and records the call
func (s *Service) Price(spec *models.SwapSpec) (*models.PriceResult, error) {
	start := time.Now()
	res, err := s.engine.Price(spec)
	s.observe("price", start, err)
	return res, err
}

// Tangent computes one directional derivative and records the call
func (s *Service) Tangent(spec *models.SwapSpec, forwardRateDots []float64, zeroRateDot float64) (*models.TangentResult, error) {
	start := time.Now()
	res, err := s.engine.TangentRisk(spec, forwardRateDots, zeroRateDot)
	s.observe("tangent", start, err)
	return res, err
}

// Adjoint runs one adjoint sweep and records the call
func (s *Service) Adjoint(spec *models.SwapSpec, swapPVBar float64) (*models.AdjointResult, error) {
	start := time.Now()
	res, err := s.engine.AdjointRisk(spec, swapPVBar)
	s.observe("adjoint", start, err)
	return res, err
}

func (s *Service) observe(mode string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errors.TypeOf(err).String()
		var se *swap.ScheduleError
		if errors.As(err, &se) {
			s.recorder.RecordScheduleError(se.Leg)
		}
	}
	s.recorder.RecordValuation(mode, outcome, time.Since(start))
}

// Ladder returns the PV change for a one basis point shift of each forward
// rate in turn, one tangent call per float period
func (s *Service) Ladder(spec *models.SwapSpec) ([]models.ForwardBucket, error) {
	if err := swap.Validate(spec); err != nil {
		return nil, err
	}

	shift := s.engine.Config().ForwardShift
	ladder := make([]models.ForwardBucket, len(spec.FloatForwardRates))
	dots := make([]float64, len(spec.FloatForwardRates))
	for j := range dots {
		dots[j] = shift
		res, err := s.Tangent(spec, dots, 0)
		if err != nil {
			return nil, err
		}
		dots[j] = 0

		ladder[j] = models.ForwardBucket{
			Period: j + 1,
			Time:   spec.FloatTimes[j],
			PV01:   res.SwapPVDot,
		}
	}
	return ladder, nil
}

// Report computes price, tangent PV01 / discount risk / DV01, the adjoint
// constituents and the forward ladder for one swap
func (s *Service) Report(ctx context.Context, spec *models.SwapSpec) (*models.RiskReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := swap.Validate(spec); err != nil {
		s.observe("report", time.Now(), err)
		return nil, err
	}

	start := time.Now()
	cfg := s.engine.Config()
	forwards := swap.UniformForwardShift(spec, cfg.ForwardShift)
	noForwards := make([]float64, len(spec.FloatForwardRates))

	price, err := s.Price(spec)
	if err != nil {
		return nil, err
	}
	pv01, err := s.Tangent(spec, forwards, 0)
	if err != nil {
		return nil, err
	}
	discount, err := s.Tangent(spec, noForwards, cfg.ZeroShift)
	if err != nil {
		return nil, err
	}
	dv01, err := s.Tangent(spec, forwards, cfg.ZeroShift)
	if err != nil {
		return nil, err
	}
	adjoint, err := s.Adjoint(spec, 1)
	if err != nil {
		return nil, err
	}
	ladder, err := s.Ladder(spec)
	if err != nil {
		return nil, err
	}

	report := &models.RiskReport{
		SwapID:              spec.ID,
		Timestamp:           s.now().UTC(),
		Price:               price,
		TangentPV01:         pv01.SwapPVDot,
		TangentDiscountRisk: discount.SwapPVDot,
		TangentDV01:         dv01.SwapPVDot,
		Adjoint:             adjoint,
		Ladder:              ladder,
	}

	if s.config.FiniteDifference {
		fd, err := s.engine.BumpRisk(spec, forwards, cfg.ZeroShift, s.config.FDStep)
		if err != nil {
			return nil, err
		}
		report.FiniteDifferenceDV01 = &fd
	}

	s.observe("report", start, nil)
	s.recorder.RecordRisk(spec.ID, price.SwapPV, adjoint.PV01Risk, adjoint.DiscountRisk, adjoint.DV01)
	s.log.Infof("Risk report for swap %s: pv=%.2f dv01=%.2f (adjoint %.2f) in %s",
		spec.ID, price.SwapPV, report.TangentDV01, adjoint.DV01, time.Since(start))

	s.publish(report)
	return report, nil
}

// ReportByID loads a swap from the store and reports on it
func (s *Service) ReportByID(ctx context.Context, id string) (*models.RiskReport, error) {
	if s.store == nil {
		return nil, errors.Internal("risk service has no swap store")
	}
	spec, err := s.store.GetSwap(id)
	if err != nil {
		return nil, err
	}
	return s.Report(ctx, spec)
}

// Batch reports on many swaps concurrently. Reports keep the input order; the
// first failure cancels the remaining valuations and is returned.
func (s *Service) Batch(ctx context.Context, specs []*models.SwapSpec) ([]*models.RiskReport, error) {
	reports := make([]*models.RiskReport, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			report, err := s.Report(gctx, spec)
			if err != nil {
				id := ""
				if spec != nil {
					id = spec.ID
				}
				return errors.Wrap(err, fmt.Sprintf("swap %d (%s)", i, id))
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.log.Warnf("Batch of %d swaps failed: %v", len(specs), err)
		return nil, err
	}
	return reports, nil
}

type nopRecorder struct{}

func (nopRecorder) RecordValuation(string, string, time.Duration)         {}
func (nopRecorder) RecordScheduleError(string)                            {}
func (nopRecorder) RecordRisk(string, float64, float64, float64, float64) {}
