/*

Trade estimates, encoded instructions and the results the coordinator returns.

*/

package types

import (
	"encoding/json"

	sdkmath "cosmossdk.io/math"
)

// TradeEstimate is the ephemeral result of pricing a trade against live state.
// Amounts are in base units.
type TradeEstimate struct {
	InputAsset           AssetRef          `json:"input_asset"`
	OutputAsset          AssetRef          `json:"output_asset"`
	InputAmount          sdkmath.Int       `json:"input_amount"`
	ExpectedOutputAmount sdkmath.Int       `json:"expected_output_amount"`
	EffectivePrice       sdkmath.LegacyDec `json:"effective_price"` // human units of counter per principal
	TradeByTarget        bool              `json:"trade_by_target"`
	VenueData            json.RawMessage   `json:"venue_data,omitempty"`
}

// TradeInstruction is one MsgExecuteContract worth of data.
type TradeInstruction struct {
	ContractAddress string          `json:"contract_address"`
	Msg             json.RawMessage `json:"msg"`
	Funds           []Coin          `json:"funds"`
}

// TransactionStatus describes a transaction looked up by hash.
// TxStatus is 1 once included with code 0, -1 if included with a failure code,
// and 0 while the transaction is not known to the node.
type TransactionStatus struct {
	TxHash       string `json:"txHash"`
	CurrentBlock int64  `json:"currentBlock"`
	TxBlock      int64  `json:"txBlock"`
	GasUsed      int64  `json:"gasUsed"`
	GasWanted    int64  `json:"gasWanted"`
	TxStatus     int    `json:"txStatus"`
	Code         uint32 `json:"code"`
	RawLog       string `json:"rawLog,omitempty"`
}

// BroadcastResult is what the chain client returns after a committed transaction.
type BroadcastResult struct {
	TxHash    string    `json:"txHash"`
	Height    int64     `json:"height"`
	GasUsed   int64     `json:"gasUsed"`
	GasWanted int64     `json:"gasWanted"`
	Events    []TxEvent `json:"events,omitempty"`
	Fee       []Coin    `json:"fee,omitempty"`
}

// TxEvent is a flattened ABCI event.
type TxEvent struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// GasEstimate is the result of a simulation. GasLimit already includes the
// configured adjustment; FeeAmount is in base units of FeeDenom.
type GasEstimate struct {
	GasUsed   uint64      `json:"gasUsed"`
	GasLimit  uint64      `json:"gasLimit"`
	GasPrice  string      `json:"gasPrice"`
	FeeAmount sdkmath.Int `json:"feeAmount"`
	FeeDenom  string      `json:"feeDenom"`
}
