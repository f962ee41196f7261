package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/circuit"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
)

// fakeReader hands out queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	notify   chan struct{}
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	if w.notify != nil {
		w.notify <- struct{}{}
	}
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReporter struct{}

func (fakeReporter) Report(_ context.Context, spec *models.SwapSpec) (*models.RiskReport, error) {
	if len(spec.FixedAccruals) != len(spec.FixedTimes) {
		return nil, &scheduleErr{}
	}
	return &models.RiskReport{SwapID: spec.ID, TangentDV01: -534.9054}, nil
}

type scheduleErr struct{}

func (*scheduleErr) Error() string { return "fixed schedule error: wrong size of fixed accruals" }
func (*scheduleErr) Type() errors.ErrorType { return errors.ErrorTypeSchedule }

func swapRequest(id string) *models.SwapSpec {
	return &models.SwapSpec{
		ID:                id,
		PayReceive:        models.PayFixed,
		Notional:          1_000_000,
		FixedRate:         0.05,
		FixedAccruals:     []float64{1, 1},
		FixedTimes:        []float64{1, 2},
		FloatAccruals:     []float64{1, 1},
		FloatTimes:        []float64{1, 2},
		FloatForwardRates: []float64{0.01, 0.012},
		ZeroRate:          0.015,
	}
}

func encode(t *testing.T, c Codec, offset int64, key string, v interface{}) kafka.Message {
	t.Helper()
	payload, err := c.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Offset:  offset,
		Headers: []kafka.Header{{Key: HeaderContentType, Value: []byte(c.ContentType())}},
	}
}

func TestProtoCodecRoundTrip(t *testing.T) {
	c := ProtoCodec{}
	in := swapRequest("irs-2y")

	data, err := c.Marshal(in)
	require.NoError(t, err)

	var out models.SwapSpec
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in, &out)

	_, err = c.Marshal([]float64{1, 2})
	assert.Error(t, err)
}

func TestCodecSelection(t *testing.T) {
	c, err := CodecFor("protobuf")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeProtobuf, c.ContentType())

	_, err = CodecFor("avro")
	assert.Error(t, err)

	headers := []kafka.Header{{Key: "trace", Value: []byte("x")}, {Key: HeaderContentType, Value: []byte(ContentTypeProtobuf)}}
	assert.Equal(t, ProtoCodec{}, CodecFromHeaders(headers, JSONCodec{}))
	assert.Equal(t, JSONCodec{}, CodecFromHeaders(nil, JSONCodec{}))
}

func TestPipelinePublishesResults(t *testing.T) {
	bad := swapRequest("broken")
	bad.FixedTimes = bad.FixedTimes[:1]

	reader := &fakeReader{queue: []kafka.Message{
		encode(t, JSONCodec{}, 10, "irs-json", swapRequest("irs-json")),
		encode(t, ProtoCodec{}, 11, "irs-proto", swapRequest("")),
		encode(t, JSONCodec{}, 12, "broken", bad),
		{Key: []byte("garbage"), Value: []byte("{not json"), Offset: 13},
	}}
	writer := &fakeWriter{notify: make(chan struct{}, 4)}

	producer := NewProducer(writer, "swap-risk-results", ProtoCodec{}, nil, nil)
	p := NewPipeline(NewConsumer(reader, "swap-requests", nil), producer, fakeReporter{}, JSONCodec{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 0; i < 4; i++ {
		select {
		case <-writer.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d results published", i)
		}
	}
	cancel()
	require.NoError(t, <-done)

	require.Len(t, writer.messages, 4)
	results := make([]models.RiskResult, 4)
	for i, m := range writer.messages {
		assert.Equal(t, ContentTypeProtobuf, string(m.Headers[0].Value))
		require.NoError(t, ProtoCodec{}.Unmarshal(m.Value, &results[i]))
	}

	assert.Equal(t, "irs-json", results[0].SwapID)
	assert.InDelta(t, -534.9054, results[0].Report.TangentDV01, 1e-12)

	// The message key names swaps without an ID
	assert.Equal(t, "irs-proto", results[1].SwapID)
	assert.Equal(t, "irs-proto", string(writer.messages[1].Key))

	assert.Nil(t, results[2].Report)
	assert.Equal(t, "schedule", results[2].ErrorType)

	assert.Equal(t, "garbage", results[3].SwapID)
	assert.Equal(t, "invalid_argument", results[3].ErrorType)

	assert.Equal(t, []int64{10, 11, 12, 13}, reader.committed)
}

func TestPipelineStopsWhenBrokerIsDown(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		encode(t, JSONCodec{}, 1, "irs-1", swapRequest("irs-1")),
	}}
	brokerDown := stderrors.New("dial tcp: connection refused")
	writer := &fakeWriter{err: brokerDown}
	breaker := circuit.New("risk-results", circuit.Config{MaxFailures: 1, Timeout: time.Minute})

	p := NewPipeline(
		NewConsumer(reader, "swap-requests", nil),
		NewProducer(writer, "swap-risk-results", JSONCodec{}, breaker, nil),
		fakeReporter{},
		nil,
	)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, brokerDown)
	assert.Equal(t, errors.ErrorTypeUnavailable, errors.TypeOf(err))
	assert.Empty(t, reader.committed)
	assert.Equal(t, circuit.StateOpen, breaker.State())

	// An open breaker fails fast without touching the writer
	err = NewProducer(writer, "swap-risk-results", JSONCodec{}, breaker, nil).Publish(context.Background(), "k", map[string]string{})
	assert.ErrorIs(t, err, circuit.ErrOpen)
}

func TestResultHandlerForwardsReports(t *testing.T) {
	var got []*models.RiskReport
	handle := ResultHandler(nil, func(r *models.RiskReport) { got = append(got, r) })

	ok := &models.RiskResult{SwapID: "irs-5y", Report: &models.RiskReport{
		SwapID:    "irs-5y",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Adjoint:   &models.AdjointResult{DV01: -534.895},
	}}
	failed := &models.RiskResult{SwapID: "broken", Error: "fixed schedule error", ErrorType: "schedule"}

	ctx := context.Background()
	require.NoError(t, handle(ctx, encode(t, ProtoCodec{}, 1, "irs-5y", ok)))
	require.NoError(t, handle(ctx, encode(t, JSONCodec{}, 2, "broken", failed)))

	err := handle(ctx, kafka.Message{Value: []byte("{")})
	assert.Equal(t, errors.ErrorTypeInvalidArgument, errors.TypeOf(err))

	require.Len(t, got, 1)
	assert.Equal(t, "irs-5y", got[0].SwapID)
	assert.True(t, ok.Report.Timestamp.Equal(got[0].Timestamp))
	assert.InDelta(t, -534.895, got[0].Adjoint.DV01, 1e-12)
}
