package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoints are the node addresses the chain client connects to.
type Endpoints struct {
	// NodeRPC is the CometBFT RPC endpoint, used for broadcast and block height.
	NodeRPC string
	// NodeGRPC is the gRPC endpoint, used for queries, simulation and tx lookup.
	NodeGRPC string
}

// Venues are the contract addresses of the trading venues.
type Venues struct {
	// RouterAddress is the AMM router contract. Empty disables AMM trading.
	RouterAddress string
	// SwapOperationKey is the router's swap operation variant (e.g. "halo_swap", "orai_swap").
	SwapOperationKey string
	// OrderBookAddress is the limit order contract. Empty disables the CLOB.
	OrderBookAddress string
	// ClobDecimalScale is the exponent applied to human order amounts.
	ClobDecimalScale int
}

func loadEndpointConfig(e *Endpoints) error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	e.NodeRPC, err = getEnv("NODE_RPC")
	if err != nil {
		return err
	}

	e.NodeGRPC, err = getEnv("NODE_GRPC")
	if err != nil {
		return err
	}

	log.Debug().
		Str("NodeRPC", e.NodeRPC).
		Str("NodeGRPC", e.NodeGRPC).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}

func loadVenueConfig(v *Venues) error {
	v.RouterAddress = getEnvOrDefault("ROUTER_ADDRESS", "")
	v.SwapOperationKey = getEnvOrDefault("SWAP_OPERATION_KEY", "halo_swap")
	v.OrderBookAddress = getEnvOrDefault("ORDERBOOK_ADDRESS", "")

	scale, err := getEnvAsIntOrDefault("CLOB_DECIMAL_SCALE", 6)
	if err != nil {
		return err
	}
	v.ClobDecimalScale = scale

	log.Debug().
		Str("RouterAddress", v.RouterAddress).
		Str("OrderBookAddress", v.OrderBookAddress).
		Int("ClobDecimalScale", scale).
		Msg("Venue configuration loaded successfully.")

	return nil
}
