package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/elys-network/cwgateway/internal/logger"
	"github.com/elys-network/cwgateway/internal/metrics"
	"github.com/elys-network/cwgateway/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RequestIDHeader carries the per-request id; an incoming value is kept.
const RequestIDHeader = "X-Request-ID"

// Gateway is the set of operations the HTTP surface exposes.
type Gateway interface {
	Network() string
	Price(ctx context.Context, req types.PriceRequest) (*types.PriceResponse, error)
	Trade(ctx context.Context, req types.TradeRequest) (*types.TradeResponse, error)
	EstimateGas(ctx context.Context, req types.TradeRequest) (*types.EstimateGasResponse, error)
	Markets(ctx context.Context) *types.MarketsResponse
	OrderBook(ctx context.Context, market string) (*types.OrderBookResponse, error)
	Ticker(ctx context.Context, market string) (*types.TickerResponse, error)
	Orders(ctx context.Context, market, address string, orderID uint64) (*types.OrdersResponse, error)
	PostOrder(ctx context.Context, req types.OrderRequest) (*types.OrderResponse, error)
	DeleteOrder(ctx context.Context, req types.CancelRequest) (*types.OrderResponse, error)
	BatchOrders(ctx context.Context, req types.BatchOrdersRequest) (*types.OrderResponse, error)
	Poll(ctx context.Context, req types.PollRequest) (*types.PollResponse, error)
	Balances(ctx context.Context, req types.BalanceRequest) (*types.BalanceResponse, error)
	AddWallet(ctx context.Context, req types.AddWalletRequest) (*types.AddWalletResponse, error)
	ListWallets(ctx context.Context) ([]types.WalletEntry, error)
}

// ReceiptLister reads the receipt journal.
type ReceiptLister interface {
	RecentReceipts(ctx context.Context, address string, limit int) ([]types.Receipt, error)
	Ping(ctx context.Context) error
}

// Config holds the dependencies of the web server.
type Config struct {
	Port    string
	Gateway Gateway
	Metrics *metrics.Metrics
	Journal ReceiptLister // optional
}

// WebServer serves the gateway's JSON API.
type WebServer struct {
	router  *mux.Router
	port    string
	gateway Gateway
	metrics *metrics.Metrics
	journal ReceiptLister
	started time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(cfg Config) *WebServer {
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(cfg.Gateway.Network())
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		gateway: cfg.Gateway,
		metrics: m,
		journal: cfg.Journal,
		started: time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods(http.MethodGet)
	ws.router.Handle("/metrics", ws.metrics.Handler()).Methods(http.MethodGet)

	amm := ws.router.PathPrefix("/amm").Subrouter()
	amm.HandleFunc("/price", ws.handlePrice).Methods(http.MethodPost)
	amm.HandleFunc("/trade", ws.handleTrade).Methods(http.MethodPost)
	amm.HandleFunc("/estimateGas", ws.handleEstimateGas).Methods(http.MethodPost)

	clob := ws.router.PathPrefix("/clob").Subrouter()
	clob.HandleFunc("/markets", ws.handleMarkets).Methods(http.MethodGet)
	clob.HandleFunc("/orderBook", ws.handleOrderBook).Methods(http.MethodGet)
	clob.HandleFunc("/ticker", ws.handleTicker).Methods(http.MethodGet)
	clob.HandleFunc("/orders", ws.handleGetOrders).Methods(http.MethodGet)
	clob.HandleFunc("/orders", ws.handlePostOrder).Methods(http.MethodPost)
	clob.HandleFunc("/orders", ws.handleDeleteOrder).Methods(http.MethodDelete)
	clob.HandleFunc("/batchOrders", ws.handleBatchOrders).Methods(http.MethodPost)

	ch := ws.router.PathPrefix("/chain").Subrouter()
	ch.HandleFunc("/balances", ws.handleBalances).Methods(http.MethodPost)
	ch.HandleFunc("/poll", ws.handlePoll).Methods(http.MethodPost)

	ws.router.HandleFunc("/wallet", ws.handleListWallets).Methods(http.MethodGet)
	ws.router.HandleFunc("/wallet/add", ws.handleAddWallet).Methods(http.MethodPost)

	if ws.journal != nil {
		ws.router.HandleFunc("/receipts", ws.handleReceipts).Methods(http.MethodGet)
	}

	ws.router.Use(ws.requestIDMiddleware)
	ws.router.Use(ws.loggingMiddleware)

	// Subrouters answer method mismatches themselves; without a handler of
	// their own mux reports them as 404.
	notAllowed := http.HandlerFunc(ws.handleMethodNotAllowed)
	for _, r := range []*mux.Router{ws.router, amm, clob, ch} {
		r.MethodNotAllowedHandler = notAllowed
	}
	ws.router.NotFoundHandler = http.HandlerFunc(ws.handleNotFound)
}

func (ws *WebServer) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ws.writeErrorResponse(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed on "+r.URL.Path)
}

func (ws *WebServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	ws.writeErrorResponse(w, http.StatusNotFound, "no route for "+r.URL.Path)
}

// Handler returns the full middleware chain.
func (ws *WebServer) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", RequestIDHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(cors(ws.router))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		webLogger.Info().Msg("Shutting down web server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web server shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleHealth reports process and journal health.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := "OK"
	statusCode := http.StatusOK
	journal := map[string]interface{}{"configured": ws.journal != nil}
	if ws.journal != nil {
		if err := ws.journal.Ping(r.Context()); err != nil {
			status = "DEGRADED"
			statusCode = http.StatusServiceUnavailable
			journal["healthy"] = false
			journal["error"] = err.Error()
		} else {
			journal["healthy"] = true
		}
	}

	response := map[string]interface{}{
		"status":    status,
		"network":   ws.gateway.Network(),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"gateway": map[string]interface{}{
			"markets": len(ws.gateway.Markets(r.Context()).Markets),
			"journal": journal,
		},
	}
	ws.writeJSONResponse(w, statusCode, response)
}

func (ws *WebServer) handleReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	receipts, err := ws.journal.RecentReceipts(r.Context(), r.URL.Query().Get("address"), limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	})
}

// decodeBody reads a JSON request body into out.
func decodeBody(r *http.Request, out any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}

var errBadBody = errors.New("malformed request body")

// writeJSONResponse writes a JSON response. The body is encoded before the
// status goes out so an encoding failure becomes a 500.
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
		buf.Reset()
		statusCode = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorBody{
			Error:     true,
			Message:   "failed to encode response",
			Timestamp: nowUTC(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		webLogger.Debug().Err(err).Msg("Failed to write response body")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	ws.writeJSONResponse(w, statusCode, errorBody{
		Error:     true,
		Message:   message,
		Timestamp: nowUTC(),
	})
}

func nowUTC() time.Time { return time.Now().UTC() }

type errorBody struct {
	Error     bool      `json:"error"`
	Message   string    `json:"message"`
	TxHash    string    `json:"txHash,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (ws *WebServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// loggingMiddleware logs HTTP requests and records their metrics
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		ws.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(wrapper.statusCode)).Inc()
		ws.metrics.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())

		webLogger.Info().
			Str("request_id", requestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// recoveryLogger routes recovered panics into the component logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	webLogger.Error().Str("panic", fmt.Sprint(v...)).Msg("Recovered from handler panic")
}
