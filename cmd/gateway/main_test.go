package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/cwgateway/internal/chain/chaintest"
	"github.com/elys-network/cwgateway/internal/config"
	"github.com/elys-network/cwgateway/internal/keystore"
	"github.com/elys-network/cwgateway/internal/registry"
)

func setEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for k, v := range map[string]string{
		"CHAIN_NAME":         "aura",
		"CHAIN_ID":           "aura_6322-2",
		"BECH32_PREFIX":      "aura",
		"NODE_RPC":           "http://localhost:26657",
		"NODE_GRPC":          "localhost:9090",
		"TOKEN_LIST_SOURCE":  "tokens.json",
		"WALLET_DIR":         dir,
		"GATEWAY_PASSPHRASE": "correct horse battery staple",
		"DB_HOST":            "",
	} {
		t.Setenv(k, v)
	}
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWalletAddAndList(t *testing.T) {
	setEnv(t)
	key := "0x" + strings.Repeat("42", 32)

	out, err := run(t, key+"\n", "wallet", "add")
	require.NoError(t, err)
	assert.Equal(t, "aura1znd5zwx4dghvlvggsx5muw2dnuepnpdjekl4eh\n", out)

	out, err = run(t, "", "wallet", "list")
	require.NoError(t, err)
	assert.Equal(t, "aura\taura1znd5zwx4dghvlvggsx5muw2dnuepnpdjekl4eh\n", out)
}

func TestWalletAddNeedsKey(t *testing.T) {
	setEnv(t)
	_, err := run(t, "", "wallet", "add")
	require.Error(t, err)
}

func TestJournalResetNeedsConfirmation(t *testing.T) {
	setEnv(t)
	_, err := run(t, "", "journal", "reset")
	require.ErrorContains(t, err, "--yes")
}

func TestNewExecutorWiring(t *testing.T) {
	dir := setEnv(t)
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	reg, err := registry.New(nil, nil)
	require.NoError(t, err)
	store, err := keystore.NewFileStore(dir)
	require.NoError(t, err)

	exec, err := newExecutor(cfg, &chaintest.Mock{}, reg, store, nil)
	require.NoError(t, err)
	assert.Equal(t, "aura", exec.Network())

	cfg.Venues.ClobDecimalScale = -1
	_, err = newExecutor(cfg, &chaintest.Mock{}, reg, store, nil)
	assert.ErrorContains(t, err, "CLOB_DECIMAL_SCALE")
}
