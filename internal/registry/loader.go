package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/elys-network/cwgateway/internal/config"
	"github.com/elys-network/cwgateway/internal/logger"
	"github.com/elys-network/cwgateway/internal/types"
)

var registryLogger = logger.GetForComponent("registry")

// maxListSize bounds token lists fetched over HTTP.
const maxListSize = 16 << 20

// TokenEntry is one token as written in a token list.
type TokenEntry struct {
	Address   string `json:"address"`
	Decimals  uint8  `json:"decimals"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	Base      string `json:"base,omitempty"`
	CoinDenom string `json:"coinDenom,omitempty"`
}

// PoolEntry is one AMM pool as written in a token list.
type PoolEntry struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Asset1Address string `json:"asset1Address"`
	Asset2Address string `json:"asset2Address"`
}

// File is the token list document: {"tokens":[...],"pools":[...]}.
// A bare JSON array is read as a token list without pools.
type File struct {
	Tokens []TokenEntry `json:"tokens"`
	Pools  []PoolEntry  `json:"pools"`
}

// Parse decodes a token list document.
func Parse(data []byte) (*File, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tokens []TokenEntry
		if err := json.Unmarshal(trimmed, &tokens); err != nil {
			return nil, fmt.Errorf("failed to parse token array: %w", err)
		}
		return &File{Tokens: tokens}, nil
	}
	var f File
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("failed to parse token list: %w", err)
	}
	return &f, nil
}

// Build converts a parsed document into a Registry. Unknown token kinds and
// pools that reference unlisted assets are load errors.
func Build(f *File) (*Registry, error) {
	tokens := make([]types.AssetRef, 0, len(f.Tokens))
	byAddress := make(map[string]types.AssetRef, len(f.Tokens))
	for _, e := range f.Tokens {
		kind, err := types.ParseAssetKind(e.Type)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", e.Symbol, err)
		}
		name := e.Name
		if name == "" {
			name = e.Symbol
		}
		t := types.AssetRef{
			Symbol:   e.Symbol,
			Name:     name,
			Address:  e.Address,
			Kind:     kind,
			Decimals: e.Decimals,
		}
		tokens = append(tokens, t)
		byAddress[t.Address] = t
	}

	pools := make([]types.Pool, 0, len(f.Pools))
	for _, e := range f.Pools {
		a, ok := byAddress[e.Asset1Address]
		if !ok {
			return nil, fmt.Errorf("pool %s: %w: %s", e.Name, ErrUnknownAsset, e.Asset1Address)
		}
		b, ok := byAddress[e.Asset2Address]
		if !ok {
			return nil, fmt.Errorf("pool %s: %w: %s", e.Name, ErrUnknownAsset, e.Asset2Address)
		}
		pools = append(pools, types.Pool{
			ID:              types.VenueID(a.Symbol, b.Symbol),
			AssetA:          a,
			AssetB:          b,
			ContractAddress: e.Address,
		})
	}

	return New(tokens, pools)
}

// Load reads the token list from a file or URL and builds the registry.
func Load(ctx context.Context, source string, listType config.TokenListType) (*Registry, error) {
	var (
		data []byte
		err  error
	)
	switch listType {
	case config.TokenListFile:
		data, err = os.ReadFile(source)
	case config.TokenListURL:
		data, err = fetch(ctx, source)
	default:
		return nil, fmt.Errorf("unsupported token list type %q", listType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token list %s: %w", source, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	reg, err := Build(f)
	if err != nil {
		return nil, err
	}

	registryLogger.Info().
		Str("source", source).
		Int("tokens", len(reg.tokens)).
		Int("pools", len(reg.pools)).
		Msg("Token registry loaded")

	return reg, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxListSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxListSize {
		return nil, errors.New("token list exceeds size limit")
	}
	return data, nil
}
