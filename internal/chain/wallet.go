package chain

import (
	"fmt"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
)

// Wallet is an unlocked secp256k1 signer. It lives for one request.
type Wallet struct {
	priv    *secp256k1.PrivKey
	address string
}

// NewWallet derives the bech32 address for a raw private key.
func NewWallet(privKey []byte, prefix string) (*Wallet, error) {
	if len(privKey) != secp256k1.PrivKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, secp256k1.PrivKeySize, len(privKey))
	}
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty bech32 prefix", ErrInvalidKey)
	}
	key := make([]byte, len(privKey))
	copy(key, privKey)
	priv := &secp256k1.PrivKey{Key: key}

	addr, err := bech32.ConvertAndEncode(prefix, priv.PubKey().Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &Wallet{priv: priv, address: addr}, nil
}

func (w *Wallet) Address() string { return w.address }

func (w *Wallet) AccAddress() sdk.AccAddress {
	return sdk.AccAddress(w.priv.PubKey().Address())
}

func (w *Wallet) PubKey() cryptotypes.PubKey { return w.priv.PubKey() }

// Zero overwrites the key material.
func (w *Wallet) Zero() {
	for i := range w.priv.Key {
		w.priv.Key[i] = 0
	}
}
