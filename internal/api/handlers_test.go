package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leafsii/crypto-tracker/internal/assets"
	"github.com/leafsii/crypto-tracker/internal/jobs"
	"github.com/leafsii/crypto-tracker/internal/market"
	"github.com/leafsii/crypto-tracker/internal/metrics"
	"github.com/leafsii/crypto-tracker/internal/store"
	"github.com/leafsii/crypto-tracker/internal/view"
)

type MockTicker struct {
	mock.Mock
}

func (m *MockTicker) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTicker) Stop() {
	m.Called()
}

func (m *MockTicker) Tick(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockTicker) Running() bool {
	return m.Called().Bool(0)
}

func (m *MockTicker) Ticks() uint64 {
	return m.Called().Get(0).(uint64)
}

func (m *MockTicker) Interval() time.Duration {
	return m.Called().Get(0).(time.Duration)
}

var _ TickerControl = (*MockTicker)(nil)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }

type testEnv struct {
	store  *assets.Store
	ticker *MockTicker
	router http.Handler
}

func newTestEnv(t *testing.T, pinger Pinger, rpm int) *testEnv {
	t.Helper()

	store, err := assets.NewStore(assets.DefaultAssets(), halfRand{})
	require.NoError(t, err)

	ticker := &MockTicker{}
	ticker.On("Running").Return(false).Maybe()
	ticker.On("Ticks").Return(uint64(3)).Maybe()
	ticker.On("Interval").Return(1500 * time.Millisecond).Maybe()

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	noStream := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }

	h := NewHandler(context.Background(), store, ticker, pinger, noStream, noStream, renderer, logger)
	m := NewMiddleware(logger, metrics.NewNoop())

	return &testEnv{
		store:  store,
		ticker: ticker,
		router: h.Routes(m, []string{"http://localhost:3000"}, rpm, nil),
	}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestListAssets(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	rec := env.do(http.MethodGet, "/v1/assets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto AssetListDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, 5, dto.Count)
	assert.Equal(t, "bitcoin", dto.Assets[0].ID)
}

func TestGetAsset(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	rec := env.do(http.MethodGet, "/v1/assets/ethereum", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var a market.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "ETH", a.Symbol)

	rec = env.do(http.MethodGet, "/v1/assets/dogecoin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ASSET_NOT_FOUND", decodeError(t, rec).Code)
}

func TestReplaceAssets(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	list := []market.Asset{
		{ID: "a", Rank: 1, Name: "Alpha", Symbol: "A", Price: 1},
		{ID: "b", Rank: 2, Name: "Beta", Symbol: "B", Price: 2},
	}
	rec := env.do(http.MethodPut, "/v1/assets", ReplaceAssetsRequest{Assets: list})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.store.All(), 2)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"duplicate", ReplaceAssetsRequest{Assets: []market.Asset{{ID: "x"}, {ID: "x"}}}, "DUPLICATE_ASSET_ID"},
		{"empty id", ReplaceAssetsRequest{Assets: []market.Asset{{ID: ""}}}, "EMPTY_ASSET_ID"},
		{"negative price", ReplaceAssetsRequest{Assets: []market.Asset{{ID: "x", Price: -1}}}, "NEGATIVE_PRICE"},
		{"missing field", `{}`, "MISSING_FIELD"},
		{"bad json", `{"assets":`, "INVALID_JSON"},
		{"unknown field", `{"asset":[]}`, "INVALID_JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPut, "/v1/assets", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
			assert.Len(t, env.store.All(), 2, "rejected input must not change state")
		})
	}
}

func TestReplaceWithEmptyList(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	rec := env.do(http.MethodPut, "/v1/assets", `{"assets":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.store.All())

	rec = env.do(http.MethodGet, "/v1/table", nil)
	var tbl view.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tbl))
	assert.Empty(t, tbl.Rows)
}

func TestGetTable(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	rec := env.do(http.MethodGet, "/v1/table", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tbl view.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tbl))
	require.Len(t, tbl.Rows, 5)
	assert.Equal(t, "bitcoin", tbl.Rows[0].ID)
	assert.Contains(t, tbl.Rows[0].Price, "$")
}

func TestStatusEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	rec := env.do(http.MethodGet, "/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Loading)
	assert.Nil(t, st.Error)
	assert.Equal(t, TickerStatusDTO{Running: false, Ticks: 3, IntervalMs: 1500}, st.Ticker)

	rec = env.do(http.MethodPost, "/v1/status/loading", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/status/loading", SetLoadingRequest{Loading: ptr(true)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.store.Loading())

	rec = env.do(http.MethodPost, "/v1/status/error", SetErrorRequest{Message: "rate limited"})
	require.Equal(t, http.StatusOK, rec.Code)
	msg, ok := env.store.Error()
	assert.True(t, ok)
	assert.Equal(t, "rate limited", msg)

	rec = env.do(http.MethodPost, "/v1/status/error", SetErrorRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok = env.store.Error()
	assert.False(t, ok)
}

func TestTickerEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	env.ticker.On("Start", mock.Anything).Return(nil).Once()
	env.ticker.On("Start", mock.Anything).Return(jobs.ErrAlreadyRunning).Once()
	env.ticker.On("Stop").Return().Once()

	rec := env.do(http.MethodPost, "/v1/ticker/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/v1/ticker/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TICKER_RUNNING", decodeError(t, rec).Code)

	rec = env.do(http.MethodPost, "/v1/ticker/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.ticker.AssertExpectations(t)
}

func TestTickOnce(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.ticker.On("Tick", mock.Anything).Run(func(mock.Arguments) {
		env.store.UpdatePrices()
	}).Once()

	before := env.store.Snapshot().Version
	rec := env.do(http.MethodPost, "/v1/ticker/tick", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tbl view.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tbl))
	assert.Equal(t, before+1, tbl.Version)
	env.ticker.AssertExpectations(t)
}

func TestStatusReportsCache(t *testing.T) {
	cache := store.NewMemoryCache(time.Minute, zap.NewNop().Sugar(), nil)
	defer cache.Close()
	env := newTestEnv(t, cache, 0)

	var st StatusDTO
	rec := env.do(http.MethodGet, "/v1/status", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.NotNil(t, st.Cache)
	assert.Equal(t, "memory", st.Cache.Mode)
	assert.Zero(t, st.Cache.TableTTLMs)

	require.NoError(t, cache.SetTable(context.Background(), map[string]int{"version": 1}))
	rec = env.do(http.MethodGet, "/v1/status", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Greater(t, st.Cache.TableTTLMs, int64(50_000))
	assert.LessOrEqual(t, st.Cache.TableTTLMs, int64(60_000))
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, stubPinger{}, 0)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/readyz", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ping", nil).Code)

	down := newTestEnv(t, stubPinger{err: errors.New("connection refused")}, 0)
	rec := down.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	rec := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Bitcoin")
	assert.Contains(t, rec.Body.String(), `id="row-ethereum"`)
}

func TestStreamRouteCORS(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/v1/stream", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/stream", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	rec := env.do(http.MethodGet, "/healthz", nil)
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	// 6 rpm gives a burst of one request.
	env := newTestEnv(t, nil, 6)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", nil).Code)
	rec := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
}

func TestStreamRoutesBypassTimeout(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodGet, "/v1/stream", nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodGet, "/v1/ws", nil).Code)
}

func ptr[T any](v T) *T { return &v }
