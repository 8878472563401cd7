/*

Asset types shared by the registry, the price estimator and the trade builder.

AssetKind is a closed set. Every place that encodes a message switches over it
and returns an error from the default branch, so an unhandled kind can never
fall through to the wrong encoding.

*/

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrUnknownAssetKind = errors.New("unknown asset kind")
	ErrInvalidAssetInfo = errors.New("asset info must name exactly one of token or native_token")
)

// AssetKind says how an asset moves on chain.
type AssetKind int

const (
	// AssetKindNative is a bank-module denom issued on this chain.
	AssetKindNative AssetKind = iota + 1
	// AssetKindIBC is a bank-module denom bridged over IBC ("ibc/...").
	AssetKindIBC
	// AssetKindContractToken is a CW20 token managed by its own contract.
	AssetKindContractToken
)

// ParseAssetKind parses the registry spelling of a kind.
func ParseAssetKind(s string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native":
		return AssetKindNative, nil
	case "ibc":
		return AssetKindIBC, nil
	case "cw20":
		return AssetKindContractToken, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAssetKind, s)
	}
}

func (k AssetKind) String() string {
	switch k {
	case AssetKindNative:
		return "native"
	case AssetKindIBC:
		return "ibc"
	case AssetKindContractToken:
		return "cw20"
	default:
		return fmt.Sprintf("AssetKind(%d)", int(k))
	}
}

// MarshalJSON writes the registry spelling.
func (k AssetKind) MarshalJSON() ([]byte, error) {
	switch k {
	case AssetKindNative, AssetKindIBC, AssetKindContractToken:
		return json.Marshal(k.String())
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAssetKind, int(k))
	}
}

// UnmarshalJSON reads the registry spelling.
func (k *AssetKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAssetKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AttachesFunds reports whether the asset is transferred as native funds on
// MsgExecuteContract (true) or through a CW20 send (false).
func (k AssetKind) AttachesFunds() (bool, error) {
	switch k {
	case AssetKindNative, AssetKindIBC:
		return true, nil
	case AssetKindContractToken:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownAssetKind, int(k))
	}
}

// AssetRef is a registry entry for one tradable asset.
type AssetRef struct {
	Symbol   string    `json:"symbol"`   // e.g., "ATOM"
	Name     string    `json:"name"`     // e.g., "ATOM"
	Address  string    `json:"address"`  // denom ("uaura", "ibc/...") or CW20 contract address
	Kind     AssetKind `json:"type"`     // native | ibc | cw20
	Decimals uint8     `json:"decimals"` // e.g., 6
}

// Info returns the wire descriptor for the asset.
func (a AssetRef) Info() (AssetInfo, error) {
	funds, err := a.Kind.AttachesFunds()
	if err != nil {
		return AssetInfo{}, fmt.Errorf("asset %s: %w", a.Symbol, err)
	}
	if funds {
		return NativeAssetInfo(a.Address), nil
	}
	return TokenAssetInfo(a.Address), nil
}

// Matches reports whether a wire descriptor refers to this asset.
func (a AssetRef) Matches(info AssetInfo) bool {
	return info.Identifier() == a.Address
}

// AssetInfo is the CosmWasm asset descriptor used by AMM and order-book contracts:
// {"native_token":{"denom":"uaura"}} or {"token":{"contract_addr":"aura1..."}}.
type AssetInfo struct {
	Token       *TokenInfo       `json:"token,omitempty"`
	NativeToken *NativeTokenInfo `json:"native_token,omitempty"`
}

type TokenInfo struct {
	ContractAddr string `json:"contract_addr"`
}

type NativeTokenInfo struct {
	Denom string `json:"denom"`
}

func NativeAssetInfo(denom string) AssetInfo {
	return AssetInfo{NativeToken: &NativeTokenInfo{Denom: denom}}
}

func TokenAssetInfo(contract string) AssetInfo {
	return AssetInfo{Token: &TokenInfo{ContractAddr: contract}}
}

// IsNative reports whether the descriptor is a bank denom.
func (i AssetInfo) IsNative() bool {
	return i.NativeToken != nil
}

// Identifier returns the denom or contract address.
func (i AssetInfo) Identifier() string {
	switch {
	case i.NativeToken != nil:
		return i.NativeToken.Denom
	case i.Token != nil:
		return i.Token.ContractAddr
	default:
		return ""
	}
}

// Validate checks that exactly one variant is set and it is not empty.
func (i AssetInfo) Validate() error {
	if (i.Token == nil) == (i.NativeToken == nil) {
		return ErrInvalidAssetInfo
	}
	if i.Identifier() == "" {
		return ErrInvalidAssetInfo
	}
	return nil
}

// Asset is an amount of one asset as it appears in contract messages.
type Asset struct {
	Info   AssetInfo   `json:"info"`
	Amount sdkmath.Int `json:"amount"`
}

// Coin is a native funds entry attached to a contract call.
type Coin struct {
	Denom  string      `json:"denom"`
	Amount sdkmath.Int `json:"amount"`
}
