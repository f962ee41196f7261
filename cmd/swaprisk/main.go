// Command swaprisk values the swaps of a scenario file and prints their
// tangent and adjoint rate risk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/gonum/num/dual"

	"github.com/rzzdr/swap-aad-risk/config"
	"github.com/rzzdr/swap-aad-risk/internal/ad"
	"github.com/rzzdr/swap-aad-risk/internal/risk"
	"github.com/rzzdr/swap-aad-risk/internal/scenario"
	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/report"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

var (
	scenarioFile = flag.String("scenario", "", "Scenario YAML file (default: reference 5Y swap)")
	mode         = flag.String("mode", "all", "What to compute: all, price, tangent or adjoint")
	configFile   = flag.String("config", "", "Optional configuration file for shifts and sign convention")
)

func main() {
	flag.Parse()

	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "swaprisk: %v\n", err)
		os.Exit(1)
	}
}

func run(out *os.File) error {
	switch *mode {
	case "all", "price", "tangent", "adjoint":
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		return err
	}
	logger.InitWithWriter(cfg.App.LogLevel, cfg.App.Environment, os.Stderr)

	sc := scenario.Reference5Y()
	if *scenarioFile != "" {
		if sc, err = scenario.Load(*scenarioFile); err != nil {
			return err
		}
	}

	service := risk.NewService(cfg.ServiceConfig(), swap.NewEngine(cfg.EngineConfig()), nil, nil)

	w := report.NewWriter(out)
	w.Section("Scenario " + sc.Name)
	for _, spec := range sc.Swaps {
		if err := valueSwap(w, service, sc, spec); err != nil {
			_ = w.Flush()
			return fmt.Errorf("swap %s: %w", spec.ID, err)
		}
	}

	if *mode == "all" {
		toyDemo(w)
	}
	return w.Flush()
}

func valueSwap(w *report.Writer, service *risk.Service, sc *scenario.Scenario, spec *models.SwapSpec) error {
	w.Section("Swap " + spec.ID)

	switch *mode {
	case "price":
		res, err := service.Price(spec)
		if err != nil {
			return err
		}
		w.Price(res)

	case "tangent":
		return tangentDirections(w, service, sc, spec)

	case "adjoint":
		res, err := service.Adjoint(spec, 1)
		if err != nil {
			return err
		}
		w.Adjoint(res)

	default:
		rep, err := service.Report(context.Background(), spec)
		if err != nil {
			return err
		}
		rep.SwapID = ""
		w.Report(rep)
		return tangentDirections(w, service, sc, spec)
	}
	return nil
}

func tangentDirections(w *report.Writer, service *risk.Service, sc *scenario.Scenario, spec *models.SwapSpec) error {
	for _, d := range sc.Directions {
		res, err := service.Tangent(spec, d.ForwardDots(spec), d.ZeroRateDot)
		if err != nil {
			return err
		}
		w.Tangent("Tangent "+d.Name, res)
	}
	return nil
}

// toyDemo shows both differentiation modes on f(x1, x2) = 2*x1^2 + 3*x2 at (2, 3)
func toyDemo(w *report.Writer) {
	x := []float64{2, 3}
	w.Section("Toy f(x1, x2) = 2*x1^2 + 3*x2 at (2, 3)")

	f := func(x []dual.Number) dual.Number {
		return dual.Add(dual.Scale(2, dual.Mul(x[0], x[0])), dual.Scale(3, x[1]))
	}
	_, d1 := ad.Directional(f, x, []float64{1, 0})
	_, d2 := ad.Directional(f, x, []float64{0, 1})
	w.Values("Tangent df/dx", d1, d2)

	_, grad, err := ad.Gradient(func(t *ad.Tape, v []ad.Var) ad.Var {
		return t.Add(t.Scale(2, t.Mul(v[0], v[0])), t.Scale(3, v[1]))
	}, x)
	if err != nil {
		w.Section("Adjoint failed: " + err.Error())
		return
	}
	w.Values("Adjoint df/dx", grad...)
}
