package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// ResultSink receives reports read back from the results topic
type ResultSink func(report *models.RiskReport)

// ResultHandler decodes published risk results and passes successful reports
// to sink. Failed results are skipped.
func ResultHandler(fallback Codec, sink ResultSink) MessageHandler {
	if fallback == nil {
		fallback = JSONCodec{}
	}
	log := logger.GetLogger("kafka.results")

	return func(_ context.Context, msg kafka.Message) error {
		var result models.RiskResult
		if err := CodecFromHeaders(msg.Headers, fallback).Unmarshal(msg.Value, &result); err != nil {
			return errors.InvalidArgument("decode risk result: " + err.Error())
		}
		if result.Report == nil {
			log.Debugf("Skipping failed result for swap %s: %s", result.SwapID, result.Error)
			return nil
		}
		sink(result.Report)
		return nil
	}
}
