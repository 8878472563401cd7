package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrRecordNotFound = errors.New("keystore: no record for address")

// FileStore keeps one record per address at <root>/<chain>/<address>.json.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("keystore: wallet directory cannot be empty")
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(chain, address string) (string, error) {
	if chain == "" || address == "" {
		return "", errors.New("keystore: chain and address are required")
	}
	if strings.ContainsAny(chain+address, `/\`) || strings.Contains(chain+address, "..") {
		return "", fmt.Errorf("keystore: invalid path component in %q/%q", chain, address)
	}
	return filepath.Join(s.root, chain, address+".json"), nil
}

// Save writes the record atomically with owner-only permissions.
func (s *FileStore) Save(chain, address string, record *EncryptedKeyRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	p, err := s.path(chain, address)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(p), err)
	}
	b, err := record.Marshal()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return atomicWriteFile(p, b, 0o600)
}

// Load reads and validates the record for an address.
func (s *FileStore) Load(chain, address string) (*EncryptedKeyRecord, error) {
	p, err := s.path(chain, address)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return ParseRecord(b)
}

// List returns the addresses stored for a chain, sorted.
func (s *FileStore) List(chain string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, chain))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	addresses := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		addresses = append(addresses, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(addresses)
	return addresses, nil
}

// Chains returns the chain sub-directories present under the root.
func (s *FileStore) Chains() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	chains := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			chains = append(chains, e.Name())
		}
	}
	sort.Strings(chains)
	return chains, nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod tmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
