// Package keystore encrypts signing keys at rest.
//
// Keys are wrapped with AES-256-GCM under a key derived by PBKDF2 from a
// passphrase. The on-disk record is the JSON envelope older gateways wrote
// with WebCrypto, so existing wallet files stay readable.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrAuthentication is returned when the GCM tag does not verify: wrong
	// passphrase or a tampered record. It never carries partial plaintext.
	ErrAuthentication = errors.New("keystore: wrong passphrase or corrupted record")
	// ErrInvalidRecord is returned for records that cannot be parsed or use
	// parameters this package refuses.
	ErrInvalidRecord = errors.New("keystore: invalid encrypted key record")
)

const (
	KDFName    = "PBKDF2"
	CipherName = "AES-GCM"

	// MinIterations is the weakest PBKDF2 work factor accepted on read or write.
	MinIterations = 500_000
	// DefaultIterations is used for new records.
	DefaultIterations = MinIterations

	SaltSize = 16
	IVSize   = 16
	KeySize  = 32
)

// Supported PBKDF2 hash names, spelled as WebCrypto spells them.
const (
	HashSHA256 = "SHA-256"
	HashSHA384 = "SHA-384"
	HashSHA512 = "SHA-512"
)

type KeyAlgorithm struct {
	Name       string `json:"name"`
	Salt       []byte `json:"salt"`
	Iterations int    `json:"iterations"`
	Hash       string `json:"hash"`
}

type CipherAlgorithm struct {
	Name string `json:"name"`
	IV   []byte `json:"iv"`
}

// EncryptedKeyRecord is the persisted envelope. Byte fields marshal as
// standard base64.
type EncryptedKeyRecord struct {
	KeyAlgorithm    KeyAlgorithm    `json:"keyAlgorithm"`
	CipherAlgorithm CipherAlgorithm `json:"cipherAlgorithm"`
	Ciphertext      []byte          `json:"ciphertext"`
}

func hashFunc(name string) (func() hash.Hash, error) {
	switch strings.ToUpper(name) {
	case HashSHA256, "SHA256":
		return sha256.New, nil
	case HashSHA384, "SHA384":
		return sha512.New384, nil
	case HashSHA512, "SHA512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: unsupported hash %q", ErrInvalidRecord, name)
	}
}

// DeriveKey derives the 32-byte AES key from a passphrase.
func DeriveKey(passphrase string, salt []byte, iterations int, hashName string) ([]byte, error) {
	if iterations < MinIterations {
		return nil, fmt.Errorf("%w: %d iterations is below the minimum of %d", ErrInvalidRecord, iterations, MinIterations)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidRecord)
	}
	h, err := hashFunc(hashName)
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key([]byte(passphrase), salt, iterations, KeySize, h), nil
}

func newGCM(key []byte, ivSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	// WebCrypto accepts any IV length; records carry 16 bytes.
	return cipher.NewGCMWithNonceSize(block, ivSize)
}

// Encrypt wraps plaintext under passphrase with a fresh salt and IV.
func Encrypt(plaintext []byte, passphrase string) (*EncryptedKeyRecord, error) {
	if passphrase == "" {
		return nil, errors.New("keystore: passphrase cannot be empty")
	}
	if len(plaintext) == 0 {
		return nil, errors.New("keystore: nothing to encrypt")
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("rand salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("rand iv: %w", err)
	}

	key, err := DeriveKey(passphrase, salt, DefaultIterations, HashSHA256)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(key, IVSize)
	if err != nil {
		return nil, fmt.Errorf("aead: %w", err)
	}

	return &EncryptedKeyRecord{
		KeyAlgorithm: KeyAlgorithm{
			Name:       KDFName,
			Salt:       salt,
			Iterations: DefaultIterations,
			Hash:       HashSHA256,
		},
		CipherAlgorithm: CipherAlgorithm{
			Name: CipherName,
			IV:   iv,
		},
		Ciphertext: aead.Seal(nil, iv, plaintext, nil),
	}, nil
}

// Decrypt unwraps a record. A failed tag check returns ErrAuthentication.
func Decrypt(record *EncryptedKeyRecord, passphrase string) ([]byte, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	key, err := DeriveKey(passphrase, record.KeyAlgorithm.Salt, record.KeyAlgorithm.Iterations, record.KeyAlgorithm.Hash)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(key, len(record.CipherAlgorithm.IV))
	if err != nil {
		return nil, errors.Join(ErrInvalidRecord, err)
	}
	plain, err := aead.Open(nil, record.CipherAlgorithm.IV, record.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plain, nil
}

// Validate checks algorithm names and parameters without deriving the key.
func (r *EncryptedKeyRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if !strings.EqualFold(r.KeyAlgorithm.Name, KDFName) {
		return fmt.Errorf("%w: unsupported key algorithm %q", ErrInvalidRecord, r.KeyAlgorithm.Name)
	}
	if !strings.EqualFold(r.CipherAlgorithm.Name, CipherName) {
		return fmt.Errorf("%w: unsupported cipher %q", ErrInvalidRecord, r.CipherAlgorithm.Name)
	}
	if _, err := hashFunc(r.KeyAlgorithm.Hash); err != nil {
		return err
	}
	if r.KeyAlgorithm.Iterations < MinIterations {
		return fmt.Errorf("%w: %d iterations is below the minimum of %d", ErrInvalidRecord, r.KeyAlgorithm.Iterations, MinIterations)
	}
	if len(r.KeyAlgorithm.Salt) == 0 {
		return fmt.Errorf("%w: missing salt", ErrInvalidRecord)
	}
	if len(r.CipherAlgorithm.IV) == 0 {
		return fmt.Errorf("%w: missing iv", ErrInvalidRecord)
	}
	if len(r.Ciphertext) == 0 {
		return fmt.Errorf("%w: missing ciphertext", ErrInvalidRecord)
	}
	return nil
}

// ParseRecord decodes and validates a JSON record.
func ParseRecord(data []byte) (*EncryptedKeyRecord, error) {
	var r EncryptedKeyRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Join(ErrInvalidRecord, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Marshal encodes the record as indented JSON.
func (r *EncryptedKeyRecord) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// EncryptPrivateKey stores the key as its base64 text, the plaintext form
// older gateways expect when they read the same file.
func EncryptPrivateKey(privateKey []byte, passphrase string) (*EncryptedKeyRecord, error) {
	if len(privateKey) != KeySize {
		return nil, fmt.Errorf("keystore: private key must be %d bytes, got %d", KeySize, len(privateKey))
	}
	return Encrypt([]byte(base64.StdEncoding.EncodeToString(privateKey)), passphrase)
}

// DecodePrivateKey accepts decrypted plaintext that is either the raw 32-byte
// key or the base64 text of it.
func DecodePrivateKey(plain []byte) ([]byte, error) {
	if len(plain) == KeySize {
		return plain, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(plain)))
	if err != nil {
		return nil, fmt.Errorf("%w: plaintext is neither a raw key nor base64", ErrInvalidRecord)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: decoded key is %d bytes", ErrInvalidRecord, len(raw))
	}
	return raw, nil
}
