package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzzdr/swap-aad-risk/config"
	"github.com/rzzdr/swap-aad-risk/internal/kafka"
	"github.com/rzzdr/swap-aad-risk/internal/risk"
	"github.com/rzzdr/swap-aad-risk/internal/scenario"
	"github.com/rzzdr/swap-aad-risk/internal/store"
	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/internal/websocket"
	"github.com/rzzdr/swap-aad-risk/pkg/api"
	"github.com/rzzdr/swap-aad-risk/pkg/metrics"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

var (
	configFile = flag.String("config", config.GetConfigPath(), "Path to configuration file")
	seedFile   = flag.String("seed", "", "Scenario file whose swaps are stored at startup")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)

	log := logger.GetLogger("api.main")
	log.Info("Starting swap risk API service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.NewRecorder()
	go metrics.CollectSystemMetrics(ctx, recorder, cfg.Metrics.Interval)

	// Stores
	swapStore := store.NewInMemorySwapStore()
	history := store.NewInMemoryReportHistory(cfg.Risk.HistoryLimit)
	seedSwaps(swapStore, *seedFile, log)

	engine := swap.NewEngine(cfg.EngineConfig())
	service := risk.NewService(cfg.ServiceConfig(), engine, swapStore, recorder)

	hub := websocket.NewHub(history.Latest, recorder, cfg.API.AllowedOrigins)
	go hub.Run(ctx)

	service.Subscribe(history.Append)
	service.Subscribe(hub.Publish)

	var results *kafka.Consumer
	if cfg.API.StreamResults {
		results, err = streamResults(ctx, cfg, recorder, func(r *models.RiskReport) {
			history.Append(r)
			hub.Publish(r)
		})
		if err != nil {
			log.Fatalf("Failed to stream risk results: %v", err)
		}
	}

	apiServer := api.NewServer(
		cfg.APIServerConfig(),
		api.CreateHandlers(service, swapStore, history),
		hub,
		recorder,
	)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Errorf("API server error: %v", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}
	cancel()

	if results != nil {
		if err := results.Close(); err != nil {
			log.Errorf("Result consumer shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
	_ = log.Sync()
}

func seedSwaps(swapStore *store.InMemorySwapStore, path string, log *logger.Logger) {
	sc := scenario.Reference5Y()
	if path != "" {
		loaded, err := scenario.Load(path)
		if err != nil {
			log.Fatalf("Failed to load seed scenario: %v", err)
		}
		sc = loaded
	}

	for _, spec := range sc.Swaps {
		if err := swap.Validate(spec); err != nil {
			log.Warnf("Skipping seed swap %s: %v", spec.ID, err)
			continue
		}
		if err := swapStore.SaveSwap(spec); err != nil {
			log.Warnf("Failed to store seed swap %s: %v", spec.ID, err)
		}
	}
	log.Infof("Seeded %d swaps from scenario %s", len(sc.Swaps), sc.Name)
}

// streamResults relays reports published by the risk engine. The API reads the
// results topic in its own consumer group so every instance sees every report.
func streamResults(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder, sink kafka.ResultSink) (*kafka.Consumer, error) {
	kc := cfg.KafkaClientConfig()
	kc.GroupID = cfg.Kafka.GroupID + "-api"
	kc.StartOffset = "latest"

	client, err := kafka.NewClient(kc)
	if err != nil {
		return nil, err
	}
	codec, err := kafka.CodecFor(cfg.Kafka.Codec)
	if err != nil {
		return nil, err
	}

	topic := cfg.Kafka.Topics.RiskResults
	consumer := kafka.NewConsumer(client.NewReader(topic), topic, recorder)

	log := logger.GetLogger("api.results")
	go func() {
		for ctx.Err() == nil {
			if err := consumer.Run(ctx, kafka.ResultHandler(codec, sink)); err != nil {
				log.Errorf("Result stream stopped: %v", err)
				select {
				case <-ctx.Done():
				case <-time.After(5 * time.Second):
				}
			}
		}
	}()
	return consumer, nil
}
