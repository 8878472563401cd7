package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/chain/chaintest"
	"github.com/elys-network/cwgateway/internal/types"
)

func TestRateLine(t *testing.T) {
	assert.Equal(t, "3 request(s) sent in last 300 seconds.", RateLine(3, 5*time.Minute))
	assert.Equal(t, "0 request(s) sent in last 1 seconds.", RateLine(0, time.Second))
}

func TestCountingClient(t *testing.T) {
	m := New("aura")
	mock := &chaintest.Mock{Height: 7}
	c := NewCountingClient(mock, m)

	_, err := c.GetHeight(context.Background())
	require.NoError(t, err)
	_, err = c.GetHeight(context.Background())
	require.NoError(t, err)
	err = c.QueryContractSmart(context.Background(), "aura1x", map[string]any{"config": struct{}{}}, nil)
	require.Error(t, err, "mock has no query handler")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChainRequests.WithLabelValues("get_height")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainErrors.WithLabelValues("query_contract_smart")))
	assert.Equal(t, int64(3), m.TakeWindow())
	assert.Equal(t, int64(0), m.TakeWindow(), "window resets")
}

func TestBroadcastResults(t *testing.T) {
	m := New("aura")
	mock := &chaintest.Mock{}
	c := NewCountingClient(mock, m)

	_, err := c.SignAndBroadcast(context.Background(), nil, nil)
	require.NoError(t, err)

	mock.BroadcastFn = func(*chain.Wallet, []types.TradeInstruction) (*types.BroadcastResult, error) {
		return nil, &chain.BroadcastTimeoutError{TxHash: "X", Timeout: time.Second}
	}
	_, err = c.SignAndBroadcast(context.Background(), nil, nil)
	require.Error(t, err)

	mock.BroadcastFn = func(*chain.Wallet, []types.TradeInstruction) (*types.BroadcastResult, error) {
		return nil, errors.Join(chain.ErrSlippageExceeded, chain.ErrTxRejected)
	}
	_, err = c.SignAndBroadcast(context.Background(), nil, nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("slippage")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New("aura")
	m.HTTPRequests.WithLabelValues("/health", "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gateway_http_requests_total{network="aura",route="/health",status="200"} 1`)
}

func TestReportStopsWithContext(t *testing.T) {
	m := New("aura")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Report(ctx, 10*time.Millisecond)
		close(done)
	}()
	m.chainRequest("get_height", nil)
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Report did not return after cancel")
	}
	assert.Equal(t, int64(0), m.TakeWindow(), "reported window was drained")
}
