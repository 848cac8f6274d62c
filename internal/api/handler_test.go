package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/tradestream/internal/models"
	"github.com/rewired-gh/tradestream/internal/stream"
)

type fakeController struct {
	snap       stream.Snapshot
	connectErr error
	err        error

	connectedTo  string
	disconnected int
	cleared      int
}

func (f *fakeController) Connect(rawURL string) error {
	f.connectedTo = rawURL
	return f.connectErr
}

func (f *fakeController) Disconnect() error {
	f.disconnected++
	return f.err
}

func (f *fakeController) ClearTrades() error {
	f.cleared++
	return f.err
}

func (f *fakeController) Snapshot() (stream.Snapshot, error) {
	return f.snap, f.err
}

type fakeArchive struct {
	symbol string
	limit  int
	trades []models.Trade
	err    error
}

func (f *fakeArchive) RecentTrades(symbol string, limit int) ([]models.Trade, error) {
	f.symbol, f.limit = symbol, limit
	return f.trades, f.err
}

func serve(t *testing.T, ctrl Controller, archive Archive, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r, _ := NewServer(":0", ctrl, archive)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(t, &fakeController{}, nil, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestState(t *testing.T) {
	ctrl := &fakeController{snap: stream.Snapshot{
		State:       models.StateConnected,
		Connected:   true,
		URL:         "ws://localhost:8080",
		Trades:      []models.Trade{{ID: "a", Symbol: "BTC/USD", Price: 1, Side: models.SideBuy, PriceChangeDirection: models.DirectionSame}},
		Highlighted: []string{"a"},
		Symbols:     []string{"BTC/USD"},
	}}

	w := serve(t, ctrl, nil, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connected", body["state"])
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "ws://localhost:8080", body["url"])
	assert.NotContains(t, body, "error")
	assert.Len(t, body["trades"], 1)
}

func TestTrades(t *testing.T) {
	ctrl := &fakeController{snap: stream.Snapshot{
		Trades:      []models.Trade{{ID: "b"}, {ID: "a"}},
		Highlighted: []string{"b"},
	}}

	w := serve(t, ctrl, nil, http.MethodGet, "/api/v1/trades", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Trades      []models.Trade `json:"trades"`
		Highlighted []string       `json:"highlighted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Trades, 2)
	assert.Equal(t, "b", body.Trades[0].ID)
	assert.Equal(t, []string{"b"}, body.Highlighted)
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		connectErr error
		wantStatus int
	}{
		{"accepted", `{"url":"ws://localhost:8080"}`, nil, http.StatusAccepted},
		{"bad body", `{"url":`, nil, http.StatusBadRequest},
		{"empty url", `{"url":""}`, errors.Wrap(stream.ErrInvalidArgument, "websocket URL cannot be empty"), http.StatusBadRequest},
		{"bad scheme", `{"url":"http://x"}`, errors.Wrap(stream.ErrTransportOpen, "failed to connect"), http.StatusBadGateway},
		{"stopped", `{"url":"ws://x"}`, stream.ErrStopped, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{connectErr: tt.connectErr}
			w := serve(t, ctrl, nil, http.MethodPost, "/api/v1/connect", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.connectErr != nil {
				assert.Contains(t, w.Body.String(), tt.connectErr.Error())
			}
		})
	}
}

func TestConnect_PassesURL(t *testing.T) {
	ctrl := &fakeController{}
	serve(t, ctrl, nil, http.MethodPost, "/api/v1/connect", `{"url":"wss://feed.example.com"}`)
	assert.Equal(t, "wss://feed.example.com", ctrl.connectedTo)
}

func TestDisconnectAndClear(t *testing.T) {
	ctrl := &fakeController{}

	w := serve(t, ctrl, nil, http.MethodPost, "/api/v1/disconnect", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = serve(t, ctrl, nil, http.MethodPost, "/api/v1/clear", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1, ctrl.disconnected)
	assert.Equal(t, 1, ctrl.cleared)
}

func TestStoppedController(t *testing.T) {
	ctrl := &fakeController{err: stream.ErrStopped}
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/state"},
		{http.MethodGet, "/api/v1/trades"},
		{http.MethodPost, "/api/v1/disconnect"},
		{http.MethodPost, "/api/v1/clear"},
	} {
		w := serve(t, ctrl, nil, tc.method, tc.path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, tc.path)
	}
}

func TestArchive(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		w := serve(t, &fakeController{}, nil, http.MethodGet, "/api/v1/archive", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("defaults", func(t *testing.T) {
		archive := &fakeArchive{trades: []models.Trade{{ID: "x"}}}
		w := serve(t, &fakeController{}, archive, http.MethodGet, "/api/v1/archive", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", archive.symbol)
		assert.Equal(t, defaultArchiveLimit, archive.limit)
		assert.Contains(t, w.Body.String(), `"id":"x"`)
	})

	t.Run("symbol and capped limit", func(t *testing.T) {
		archive := &fakeArchive{}
		w := serve(t, &fakeController{}, archive, http.MethodGet, "/api/v1/archive?symbol=ETH/USD&limit=5000", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ETH/USD", archive.symbol)
		assert.Equal(t, maxArchiveLimit, archive.limit)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := serve(t, &fakeController{}, &fakeArchive{}, http.MethodGet, "/api/v1/archive?limit=-1", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		archive := &fakeArchive{err: errors.New("database is locked")}
		w := serve(t, &fakeController{}, archive, http.MethodGet, "/api/v1/archive", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
