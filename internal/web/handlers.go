package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/executor"
	"github.com/elys-network/cwgateway/internal/keystore"
	"github.com/elys-network/cwgateway/internal/pricing"
	"github.com/elys-network/cwgateway/internal/registry"
	"github.com/elys-network/cwgateway/internal/trade"
	"github.com/elys-network/cwgateway/internal/types"
	"github.com/elys-network/cwgateway/internal/utils"
)

var _ Gateway = (*executor.Executor)(nil)

// statusFor maps a gateway error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chain.ErrBroadcastTimeout):
		return http.StatusAccepted
	case errors.Is(err, keystore.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, registry.ErrUnknownMarket):
		return http.StatusNotFound
	case errors.Is(err, chain.ErrSlippageExceeded):
		return http.StatusConflict
	case errors.Is(err, pricing.ErrNoRoute):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pricing.ErrVenueData), errors.Is(err, chain.ErrQueryFailed):
		return http.StatusBadGateway
	case errors.Is(err, errBadBody),
		errors.Is(err, executor.ErrInvalidRequest),
		errors.Is(err, registry.ErrUnknownAsset),
		errors.Is(err, keystore.ErrRecordNotFound),
		errors.Is(err, trade.ErrInvalidSlippage),
		errors.Is(err, trade.ErrInvalidOrder),
		errors.Is(err, trade.ErrInvalidSwap),
		errors.Is(err, types.ErrUnknownAssetKind),
		errors.Is(err, utils.ErrAmountZero),
		errors.Is(err, utils.ErrAmountNegative),
		errors.Is(err, utils.ErrConversionFailed),
		errors.Is(err, chain.ErrTxRejected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeGatewayError renders err. A broadcast timeout still carries the hash
// so the caller can poll it.
func (ws *WebServer) writeGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: true, Message: err.Error(), Timestamp: nowUTC()}

	var timeout *chain.BroadcastTimeoutError
	if errors.As(err, &timeout) {
		body.TxHash = timeout.TxHash
	}
	if status >= http.StatusInternalServerError {
		webLogger.Error().Err(err).
			Str("request_id", requestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	ws.writeJSONResponse(w, status, body)
}

// serve decodes a JSON body into Req, calls fn and writes its result.
func serve[Req any, Res any](ws *WebServer, fn func(context.Context, Req) (Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := decodeBody(r, &req); err != nil {
			ws.writeGatewayError(w, r, err)
			return
		}
		res, err := fn(r.Context(), req)
		if err != nil {
			ws.writeGatewayError(w, r, err)
			return
		}
		ws.writeJSONResponse(w, http.StatusOK, res)
	}
}

func (ws *WebServer) handlePrice(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.Price)(w, r)
}

func (ws *WebServer) handleTrade(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.Trade)(w, r)
}

func (ws *WebServer) handleEstimateGas(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.EstimateGas)(w, r)
}

func (ws *WebServer) handlePostOrder(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.PostOrder)(w, r)
}

func (ws *WebServer) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.DeleteOrder)(w, r)
}

func (ws *WebServer) handleBatchOrders(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.BatchOrders)(w, r)
}

func (ws *WebServer) handleBalances(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.Balances)(w, r)
}

func (ws *WebServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.Poll)(w, r)
}

func (ws *WebServer) handleAddWallet(w http.ResponseWriter, r *http.Request) {
	serve(ws, ws.gateway.AddWallet)(w, r)
}

func (ws *WebServer) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := ws.gateway.ListWallets(r.Context())
	if err != nil {
		ws.writeGatewayError(w, r, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, wallets)
}

func (ws *WebServer) handleMarkets(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.gateway.Markets(r.Context()))
}

// marketParam reads the required market query parameter.
func (ws *WebServer) marketParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	market := r.URL.Query().Get("market")
	if market == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "market parameter is required")
		return "", false
	}
	return market, true
}

func (ws *WebServer) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	market, ok := ws.marketParam(w, r)
	if !ok {
		return
	}
	book, err := ws.gateway.OrderBook(r.Context(), market)
	if err != nil {
		ws.writeGatewayError(w, r, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, book)
}

func (ws *WebServer) handleTicker(w http.ResponseWriter, r *http.Request) {
	market, ok := ws.marketParam(w, r)
	if !ok {
		return
	}
	ticker, err := ws.gateway.Ticker(r.Context(), market)
	if err != nil {
		ws.writeGatewayError(w, r, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, ticker)
}

func (ws *WebServer) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	market, ok := ws.marketParam(w, r)
	if !ok {
		return
	}
	var orderID uint64
	if s := r.URL.Query().Get("orderId"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "orderId must be an unsigned integer")
			return
		}
		orderID = id
	}
	orders, err := ws.gateway.Orders(r.Context(), market, r.URL.Query().Get("address"), orderID)
	if err != nil {
		ws.writeGatewayError(w, r, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, orders)
}
