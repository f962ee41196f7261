package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/swap-aad-risk/internal/risk"
	"github.com/rzzdr/swap-aad-risk/internal/store"
	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/pkg/metrics"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func referenceSwap(id string) *models.SwapSpec {
	return &models.SwapSpec{
		ID:                id,
		PayReceive:        models.ReceiveFixed,
		Notional:          1_000_000,
		FixedRate:         0.05,
		FixedAccruals:     []float64{1, 1, 1, 1, 1},
		FixedTimes:        []float64{1, 2, 3, 4, 5},
		FloatAccruals:     []float64{1, 1, 1, 1, 1},
		FloatTimes:        []float64{1, 2, 3, 4, 5},
		FloatForwardRates: []float64{0.01, 0.01, 0.01, 0.01, 0.01},
		ZeroRate:          0.015,
	}
}

type testServer struct {
	router   http.Handler
	swaps    *store.InMemorySwapStore
	history  *store.InMemoryReportHistory
	recorder *metrics.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	swaps := store.NewInMemorySwapStore()
	history := store.NewInMemoryReportHistory(10)
	recorder := metrics.NewRecorder()

	service := risk.NewService(risk.ServiceConfig{Workers: 2}, swap.NewEngine(swap.DefaultConfig()), swaps, recorder)
	service.Subscribe(history.Append)

	server := NewServer(Config{}, CreateHandlers(service, swaps, history), nil, recorder)
	return &testServer{router: server.Router(), swaps: swaps, history: history, recorder: recorder}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/v1/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestPriceEndpoint(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/v1/swaps/price", referenceSwap(""))

	require.Equal(t, http.StatusOK, w.Code)
	var res models.PriceResult
	decode(t, w, &res)
	assert.InDelta(t, 191242.5190, res.SwapPV, 1e-3)
	assert.InDelta(t, -478.1063, res.PV01, 1e-3)
}

func TestTangentEndpoint(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  TangentRequest
		want float64
	}{
		{"pv01", TangentRequest{Swap: referenceSwap(""), UniformForwardDot: swap.BasisPoint}, -478.1063},
		{"discount", TangentRequest{Swap: referenceSwap(""), ZeroRateDot: swap.BasisPoint}, -56.7991},
		{"dv01", TangentRequest{Swap: referenceSwap(""), ForwardRateDots: []float64{1e-4, 1e-4, 1e-4, 1e-4, 1e-4}, ZeroRateDot: 1e-4}, -534.9054},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/swaps/tangent", tt.req)
			require.Equal(t, http.StatusOK, w.Code)

			var res models.TangentResult
			decode(t, w, &res)
			assert.InDelta(t, tt.want, res.SwapPVDot, 1e-3)
		})
	}
}

func TestAdjointEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/swaps/adjoint", AdjointRequest{Swap: referenceSwap("")})
	require.Equal(t, http.StatusOK, w.Code)
	var res models.AdjointResult
	decode(t, w, &res)
	assert.InDelta(t, -534.8950, res.DV01, 1e-3)

	seed := 2.0
	w = ts.do(t, http.MethodPost, "/api/v1/swaps/adjoint", AdjointRequest{Swap: referenceSwap(""), SwapPVBar: &seed})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.InDelta(t, -1069.7901, res.DV01, 1e-3)
}

func TestScheduleErrorIsUnprocessable(t *testing.T) {
	ts := newTestServer(t)
	bad := referenceSwap("")
	bad.FixedTimes = bad.FixedTimes[:4]

	for _, path := range []string{"/api/v1/swaps/price", "/api/v1/swaps/report"} {
		w := ts.do(t, http.MethodPost, path, bad)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, path)

		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, "fixed", body["leg"])
		assert.Equal(t, "fixed accruals", body["sequence"])
		assert.EqualValues(t, 4, body["expected"])
		assert.EqualValues(t, 5, body["got"])
	}

	w := ts.do(t, http.MethodPost, "/api/v1/swaps/tangent", TangentRequest{Swap: referenceSwap(""), ForwardRateDots: []float64{1e-4}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "risk input", body["leg"])
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/swaps/price", "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/swaps/adjoint", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	invalid := referenceSwap("")
	invalid.PayReceive = 0
	w = ts.do(t, http.MethodPost, "/api/v1/swaps/price", invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoredSwapLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/swaps", referenceSwap("irs-5y"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/swaps", referenceSwap(""))
	require.Equal(t, http.StatusCreated, w.Code)
	var generated models.SwapSpec
	decode(t, w, &generated)
	assert.True(t, strings.HasPrefix(generated.ID, "swap_"), generated.ID)

	bad := referenceSwap("irs-bad")
	bad.FloatForwardRates = bad.FloatForwardRates[:3]
	w = ts.do(t, http.MethodPost, "/api/v1/swaps", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/swaps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Swaps []*models.SwapSpec `json:"swaps"`
		Count int                `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 2, list.Count)

	w = ts.do(t, http.MethodGet, "/api/v1/swaps/irs-5y", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.SwapSpec
	decode(t, w, &got)
	assert.Equal(t, referenceSwap("irs-5y"), &got)

	for i := 0; i < 2; i++ {
		w = ts.do(t, http.MethodGet, "/api/v1/swaps/irs-5y/report", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	var report models.RiskReport
	decode(t, w, &report)
	assert.Equal(t, "irs-5y", report.SwapID)
	assert.InDelta(t, -534.9054, report.TangentDV01, 1e-3)
	assert.Len(t, report.Ladder, 5)

	w = ts.do(t, http.MethodGet, "/api/v1/swaps/irs-5y/reports?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Reports []*models.RiskReport `json:"reports"`
		Count   int                  `json:"count"`
	}
	decode(t, w, &history)
	assert.Equal(t, 1, history.Count)

	w = ts.do(t, http.MethodGet, "/api/v1/swaps/irs-5y/reports?limit=-3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/swaps/irs-5y", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/v1/swaps/irs-5y", "/api/v1/swaps/irs-5y/report", "/api/v1/swaps/irs-5y/reports"} {
		w = ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w = ts.do(t, http.MethodDelete, "/api/v1/swaps/irs-5y", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req := BatchRequest{Swaps: []*models.SwapSpec{referenceSwap("a"), referenceSwap("b"), referenceSwap("c")}}
	w := ts.do(t, http.MethodPost, "/api/v1/swaps/batch", req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Reports []*models.RiskReport `json:"reports"`
		Count   int                  `json:"count"`
	}
	decode(t, w, &body)
	require.Equal(t, 3, body.Count)
	assert.Equal(t, "b", body.Reports[1].SwapID)

	req.Swaps[2].FloatTimes = req.Swaps[2].FloatTimes[:2]
	w = ts.do(t, http.MethodPost, "/api/v1/swaps/batch", req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "float accruals")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/swaps/price", referenceSwap(""))

	w := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `path="/api/v1/swaps/price"`))
	assert.Contains(t, w.Body.String(), "swaprisk_valuations_total")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodOptions, "/api/v1/swaps/price", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitPerClient(t *testing.T) {
	swaps := store.NewInMemorySwapStore()
	service := risk.NewService(risk.ServiceConfig{}, swap.NewEngine(swap.DefaultConfig()), swaps, nil)
	server := NewServer(Config{RateLimit: 0.001, RateBurst: 2}, CreateHandlers(service, swaps, nil), nil, nil)
	ts := &testServer{router: server.Router()}

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/api/v1/swaps/price", referenceSwap(""))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := ts.do(t, http.MethodPost, "/api/v1/swaps/price", referenceSwap(""))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Health checks are not limited
	w = ts.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
