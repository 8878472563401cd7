/*

Request and response bodies of the HTTP surface. Amounts here are human-unit
decimal strings; conversion to base units happens in the executor.

*/

package types

// Envelope carries the fields every response reports.
type Envelope struct {
	Network   string  `json:"network"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds at request start
	Latency   float64 `json:"latency"`   // seconds
}

type PriceRequest struct {
	Base            string `json:"base"`
	Quote           string `json:"quote"`
	Amount          string `json:"amount"`
	Side            Side   `json:"side"`
	AllowedSlippage string `json:"allowedSlippage,omitempty"`
}

type PriceResponse struct {
	Envelope
	Base           string `json:"base"`
	Quote          string `json:"quote"`
	Amount         string `json:"amount"`
	RawAmount      string `json:"rawAmount"`
	ExpectedAmount string `json:"expectedAmount"`
	Price          string `json:"price"`
	GasPrice       string `json:"gasPrice"`
	GasPriceToken  string `json:"gasPriceToken"`
	GasLimit       uint64 `json:"gasLimit"`
	GasCost        string `json:"gasCost"`
}

type TradeRequest struct {
	Address         string `json:"address"`
	Base            string `json:"base"`
	Quote           string `json:"quote"`
	Amount          string `json:"amount"`
	Side            Side   `json:"side"`
	AllowedSlippage string `json:"allowedSlippage,omitempty"`
}

type TradeResponse struct {
	Envelope
	Base           string `json:"base"`
	Quote          string `json:"quote"`
	Amount         string `json:"amount"`
	RawAmount      string `json:"rawAmount"`
	ExpectedAmount string `json:"expectedAmount"`
	ExpectedIn     string `json:"expectedIn,omitempty"`
	MaximumIn      string `json:"maximumIn,omitempty"`
	MinimumOut     string `json:"minimumOut"`
	Price          string `json:"price"`
	GasPrice       string `json:"gasPrice"`
	GasPriceToken  string `json:"gasPriceToken"`
	GasLimit       uint64 `json:"gasLimit"`
	GasCost        string `json:"gasCost"`
	TxHash         string `json:"txHash,omitempty"`
}

// OrderRequest places one limit order. Price is quote per base in human units.
type OrderRequest struct {
	Address string `json:"address"`
	Market  string `json:"market"`
	Side    Side   `json:"side"`
	Amount  string `json:"amount"`
	Price   string `json:"price"`
}

type CancelRequest struct {
	Address string `json:"address"`
	Market  string `json:"market"`
	OrderID uint64 `json:"orderId,string"`
}

// BatchOrdersRequest cancels and places orders in one transaction. Cancels are
// executed before creates.
type BatchOrdersRequest struct {
	Address           string          `json:"address"`
	CreateOrderParams []OrderRequest  `json:"createOrderParams,omitempty"`
	CancelOrderParams []CancelRequest `json:"cancelOrderParams,omitempty"`
}

type OrderResponse struct {
	Envelope
	TxHash   string   `json:"txHash"`
	OrderIDs []uint64 `json:"orderIds,omitempty"`
}

type TickerResponse struct {
	Envelope
	Market string `json:"market"`
	Price  string `json:"price"`
}

type BalanceRequest struct {
	Address      string   `json:"address"`
	TokenSymbols []string `json:"tokenSymbols"`
}

type BalanceResponse struct {
	Envelope
	Balances map[string]string `json:"balances"`
}

type PollRequest struct {
	TxHash string `json:"txHash"`
}

type PollResponse struct {
	Envelope
	TransactionStatus
}

// AddWalletRequest imports a private key given as hex or base64.
type AddWalletRequest struct {
	PrivateKey string `json:"privateKey"`
}

type AddWalletResponse struct {
	Address string `json:"address"`
}

type WalletEntry struct {
	Chain     string   `json:"chain"`
	Addresses []string `json:"walletAddresses"`
}

// EstimateGasResponse reports either the configured gas settings or, when an
// address is given, a simulation of the trade.
type EstimateGasResponse struct {
	Envelope
	GasPrice      string `json:"gasPrice"`
	GasPriceToken string `json:"gasPriceToken"`
	GasLimit      uint64 `json:"gasLimit"`
	GasCost       string `json:"gasCost"`
	Simulated     bool   `json:"simulated"`
}

type MarketsResponse struct {
	Envelope
	Markets []Market `json:"markets"`
}

// OrderBookResponse prices are raw contract ratios; quantities are base units.
type OrderBookResponse struct {
	Envelope
	Market string       `json:"market"`
	Buys   []PriceLevel `json:"buys"`
	Sells  []PriceLevel `json:"sells"`
}

type OrdersResponse struct {
	Envelope
	Orders []Order `json:"orders"`
}
