package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// Reporter computes the risk report of a swap
type Reporter interface {
	Report(ctx context.Context, spec *models.SwapSpec) (*models.RiskReport, error)
}

// Pipeline turns swap requests into published risk results
type Pipeline struct {
	consumer *Consumer
	producer *Producer
	reporter Reporter
	codec    Codec
	log      *logger.Logger
}

// NewPipeline wires a consumer of swap requests to a producer of risk results.
// codec decodes requests that carry no content-type header.
func NewPipeline(consumer *Consumer, producer *Producer, reporter Reporter, codec Codec) *Pipeline {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Pipeline{
		consumer: consumer,
		producer: producer,
		reporter: reporter,
		codec:    codec,
		log:      logger.GetLogger("kafka.pipeline"),
	}
}

// Run processes requests until ctx is cancelled
func (p *Pipeline) Run(ctx context.Context) error {
	return p.consumer.Run(ctx, p.Handle)
}

// Handle values one swap request. Valuation failures are published as
// results carrying the error; only publishing failures are returned.
func (p *Pipeline) Handle(ctx context.Context, msg kafka.Message) error {
	var spec models.SwapSpec
	codec := CodecFromHeaders(msg.Headers, p.codec)
	if err := codec.Unmarshal(msg.Value, &spec); err != nil {
		p.log.Warnf("Undecodable swap request at offset %d: %v", msg.Offset, err)
		return p.publish(ctx, &models.RiskResult{
			SwapID:    string(msg.Key),
			Error:     "decode swap request: " + err.Error(),
			ErrorType: errors.ErrorTypeInvalidArgument.String(),
		})
	}
	if spec.ID == "" {
		spec.ID = string(msg.Key)
	}

	report, err := p.reporter.Report(ctx, &spec)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Unavailable("risk report interrupted", ctx.Err())
		}
		p.log.Warnf("Risk report for swap %s failed: %v", spec.ID, err)
		return p.publish(ctx, &models.RiskResult{
			SwapID:    spec.ID,
			Error:     err.Error(),
			ErrorType: errors.TypeOf(err).String(),
		})
	}

	return p.publish(ctx, &models.RiskResult{SwapID: spec.ID, Report: report})
}

func (p *Pipeline) publish(ctx context.Context, result *models.RiskResult) error {
	return p.producer.Publish(ctx, result.SwapID, result)
}

// Close closes both ends of the pipeline
func (p *Pipeline) Close() error {
	cerr := p.consumer.Close()
	perr := p.producer.Close()
	if cerr != nil {
		return cerr
	}
	return perr
}
