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
	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/pkg/metrics"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/circuit"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// Pause before the pipeline restarts after the broker became unavailable
const restartBackoff = 5 * time.Second

var configFile = flag.String("config", config.GetConfigPath(), "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		logger.GetLogger("risk-engine.main").Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)

	log := logger.GetLogger("risk-engine.main")
	log.Info("Starting swap risk engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.NewRecorder()
	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Port, cfg.Metrics.Path, recorder)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Prometheus server error: %v", err)
			}
		}()
		go metrics.CollectSystemMetrics(ctx, recorder, cfg.Metrics.Interval)
	}

	kafkaClient, err := kafka.NewClient(cfg.KafkaClientConfig())
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}
	codec, err := kafka.CodecFor(cfg.Kafka.Codec)
	if err != nil {
		log.Fatalf("Invalid Kafka codec: %v", err)
	}

	topics := cfg.Kafka.Topics
	if cfg.Kafka.Partitions.CreateTopics {
		for _, topic := range []string{topics.SwapRequests, topics.RiskResults} {
			if err := kafkaClient.CreateTopic(ctx, topic, cfg.Kafka.Partitions.Count, cfg.Kafka.Partitions.ReplicationFactor); err != nil {
				log.Fatalf("Failed to create topic %s: %v", topic, err)
			}
		}
	}

	breaker := circuit.New("kafka."+topics.RiskResults, circuit.Config{
		MaxFailures: cfg.Kafka.Breaker.MaxFailures,
		Timeout:     cfg.Kafka.Breaker.Timeout,
		OnStateChange: func(name string, from, to circuit.State) {
			log.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
			recorder.RecordBreakerState(name, int(to))
		},
	})

	service := risk.NewService(cfg.ServiceConfig(), swap.NewEngine(cfg.EngineConfig()), nil, recorder)

	// A fresh reader rejoins the group at the last committed offset, so a
	// request whose result could not be published is read again.
	newPipeline := func() *kafka.Pipeline {
		return kafka.NewPipeline(
			kafka.NewConsumer(kafkaClient.NewReader(topics.SwapRequests), topics.SwapRequests, recorder),
			kafka.NewProducer(kafkaClient.NewWriter(topics.RiskResults), topics.RiskResults, codec, breaker, recorder),
			service,
			codec,
		)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			pipeline := newPipeline()
			err := pipeline.Run(ctx)
			if cerr := pipeline.Close(); cerr != nil {
				log.Errorf("Pipeline shutdown error: %v", cerr)
			}
			if err == nil || ctx.Err() != nil {
				return
			}
			if errors.TypeOf(err) != errors.ErrorTypeUnavailable {
				log.Errorf("Risk pipeline failed: %v", err)
				cancel()
				return
			}

			log.Warnf("Risk pipeline paused: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(restartBackoff):
			}
		}
	}()

	log.Infof("Risk engine consuming %s, publishing to %s", topics.SwapRequests, topics.RiskResults)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case <-ctx.Done():
	}

	cancel()
	<-done

	if promServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := promServer.Stop(shutdownCtx); err != nil {
			log.Errorf("Prometheus server shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
	_ = log.Sync()
}
