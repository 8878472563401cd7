package keystore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoPassphrase = errors.New("keystore: passphrase is empty or not set")

// PassphraseSource supplies the passphrase that unlocks wallet records.
type PassphraseSource interface {
	Passphrase() (string, error)
}

// EnvPassphrase reads the passphrase from an environment variable on every call.
type EnvPassphrase string

func (e EnvPassphrase) Passphrase() (string, error) {
	v := os.Getenv(string(e))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPassphrase, string(e))
	}
	return v, nil
}

// FilePassphrase reads the first line of a file, e.g. a mounted secret.
type FilePassphrase string

func (f FilePassphrase) Passphrase() (string, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return "", fmt.Errorf("open passphrase file: %w", err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read passphrase file: %w", err)
		}
		return "", fmt.Errorf("%w: %s", ErrNoPassphrase, string(f))
	}
	line := strings.TrimRight(sc.Text(), "\r")
	if line == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPassphrase, string(f))
	}
	return line, nil
}

// StaticPassphrase is a fixed passphrase, used by tests and one-shot tools.
type StaticPassphrase string

func (s StaticPassphrase) Passphrase() (string, error) {
	if s == "" {
		return "", ErrNoPassphrase
	}
	return string(s), nil
}
