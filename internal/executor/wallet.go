package executor

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/keystore"
	"github.com/elys-network/cwgateway/internal/types"
)

// unlock loads and decrypts the record for address. The caller must Zero the
// returned wallet.
func (e *Executor) unlock(r *run, address string) (*chain.Wallet, error) {
	r.enter(StageUnlocking)
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidRequest)
	}
	record, err := e.wallets.Load(e.network, address)
	if err != nil {
		return nil, err
	}
	pass, err := e.passphrase.Passphrase()
	if err != nil {
		return nil, err
	}
	plain, err := keystore.Decrypt(record, pass)
	if err != nil {
		return nil, err
	}
	defer clear(plain)
	key, err := keystore.DecodePrivateKey(plain)
	if err != nil {
		return nil, err
	}
	w, err := chain.NewWallet(key, e.prefix)
	clear(key) // may alias plain
	if err != nil {
		return nil, err
	}
	if w.Address() != address {
		w.Zero()
		return nil, fmt.Errorf("%w: %w: record for %s holds %s", keystore.ErrAuthentication, ErrWalletMismatch, address, w.Address())
	}
	r.log.Debug().Str("address", address).Msg("Wallet unlocked")
	return w, nil
}

// parsePrivateKey accepts 64 hex characters (optionally 0x-prefixed) or base64.
func parsePrivateKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: private key is required", ErrInvalidRequest)
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) == 64 {
		if b, err := hex.DecodeString(trimmed); err == nil {
			return b, nil
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: private key must be 32 bytes as hex or base64", ErrInvalidRequest)
	}
	return b, nil
}

// AddWallet encrypts a private key under the gateway passphrase and stores it.
func (e *Executor) AddWallet(_ context.Context, req types.AddWalletRequest) (*types.AddWalletResponse, error) {
	r := e.newRun("add_wallet")

	address, err := ImportWallet(e.wallets, e.passphrase, e.network, e.prefix, req.PrivateKey)
	if err != nil {
		return nil, r.fail(err)
	}

	r.log.Info().Str("address", address).Msg("Wallet added")
	r.done()
	return &types.AddWalletResponse{Address: address}, nil
}

// ImportWallet parses privateKey, encrypts it under the passphrase and saves
// the record for network. It returns the derived address.
func ImportWallet(store WalletStore, source keystore.PassphraseSource, network, prefix, privateKey string) (string, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	defer clear(key)

	w, err := chain.NewWallet(key, prefix)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	defer w.Zero()

	pass, err := source.Passphrase()
	if err != nil {
		return "", err
	}
	record, err := keystore.EncryptPrivateKey(key, pass)
	if err != nil {
		return "", err
	}
	if err := store.Save(network, w.Address(), record); err != nil {
		return "", err
	}
	return w.Address(), nil
}

// ListWallets returns stored addresses grouped by chain.
func (e *Executor) ListWallets(_ context.Context) ([]types.WalletEntry, error) {
	return StoredWallets(e.wallets)
}

// StoredWallets lists every address in store grouped by chain.
func StoredWallets(store WalletStore) ([]types.WalletEntry, error) {
	chains, err := store.Chains()
	if err != nil {
		return nil, err
	}
	out := make([]types.WalletEntry, 0, len(chains))
	for _, c := range chains {
		addrs, err := store.List(c)
		if err != nil {
			return nil, fmt.Errorf("list %s wallets: %w", c, err)
		}
		out = append(out, types.WalletEntry{Chain: c, Addresses: addrs})
	}
	return out, nil
}
