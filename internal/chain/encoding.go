package chain

import (
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/x/tx/signing"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/cosmos/cosmos-sdk/codec/address"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/cosmos/gogoproto/proto"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
)

// EncodingConfig bundles the codecs used to build, sign and decode transactions.
type EncodingConfig struct {
	InterfaceRegistry codectypes.InterfaceRegistry
	Codec             codec.Codec
	TxConfig          client.TxConfig
	Amino             *codec.LegacyAmino
}

// MakeEncodingConfig registers the auth, bank and wasm interfaces for a chain
// using the given account prefix.
func MakeEncodingConfig(bech32Prefix string) (EncodingConfig, error) {
	if bech32Prefix == "" {
		return EncodingConfig{}, errors.New("bech32 prefix cannot be empty")
	}

	interfaceRegistry, err := codectypes.NewInterfaceRegistryWithOptions(codectypes.InterfaceRegistryOptions{
		ProtoFiles: proto.HybridResolver,
		SigningOptions: signing.Options{
			AddressCodec:          address.NewBech32Codec(bech32Prefix),
			ValidatorAddressCodec: address.NewBech32Codec(bech32Prefix + sdk.PrefixValidator + sdk.PrefixOperator),
		},
	})
	if err != nil {
		return EncodingConfig{}, fmt.Errorf("failed to create interface registry: %w", err)
	}

	amino := codec.NewLegacyAmino()
	std.RegisterLegacyAminoCodec(amino)
	std.RegisterInterfaces(interfaceRegistry)
	authtypes.RegisterInterfaces(interfaceRegistry)
	banktypes.RegisterInterfaces(interfaceRegistry)
	// Needed to decode MsgExecuteContract when querying transactions.
	wasmtypes.RegisterInterfaces(interfaceRegistry)

	cdc := codec.NewProtoCodec(interfaceRegistry)
	txConfig := authtx.NewTxConfig(cdc, authtx.DefaultSignModes)

	return EncodingConfig{
		InterfaceRegistry: interfaceRegistry,
		Codec:             cdc,
		TxConfig:          txConfig,
		Amino:             amino,
	}, nil
}

// Thread-safe SDK configuration using sync.Once
var (
	sdkConfigOnce   sync.Once
	sdkConfigError  error
	sdkConfigPrefix string
)

// configureSDK sets the global bech32 prefixes, which the account retriever
// relies on when it stringifies addresses. A process serves one chain, so a
// second call with a different prefix is an error.
func configureSDK(prefix string) error {
	sdkConfigOnce.Do(func() {
		sdkConfig := sdk.GetConfig()
		if sdkConfig == nil {
			sdkConfigError = errors.New("failed to get SDK config")
			return
		}

		valoper := prefix + sdk.PrefixValidator + sdk.PrefixOperator
		valcons := prefix + sdk.PrefixValidator + sdk.PrefixConsensus
		sdkConfig.SetBech32PrefixForAccount(prefix, prefix+sdk.PrefixPublic)
		sdkConfig.SetBech32PrefixForValidator(valoper, valoper+sdk.PrefixPublic)
		sdkConfig.SetBech32PrefixForConsensusNode(valcons, valcons+sdk.PrefixPublic)
		sdkConfig.Seal()
		sdkConfigPrefix = prefix

		chainLogger.Debug().Str("prefix", prefix).Msg("SDK configuration initialized successfully")
	})

	if sdkConfigError != nil {
		return sdkConfigError
	}
	if sdkConfigPrefix != prefix {
		return fmt.Errorf("SDK already configured for prefix %q, cannot switch to %q", sdkConfigPrefix, prefix)
	}
	return nil
}
