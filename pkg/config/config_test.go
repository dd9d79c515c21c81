package config

import (
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("NEXUSQUEST_APP_ENV", "dev")
	t.Setenv("NEXUSQUEST_APP_PORT", "8080")
	t.Setenv("NEXUSQUEST_CHAIN_RPC_URL", "ws://127.0.0.1:7545")
	t.Setenv("NEXUSQUEST_CHAIN_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	t.Setenv("NEXUSQUEST_GAME_CONTRACT", "0xb2fe60515dDeD9Ad2bEC78dC87D0274879853FD3")
	t.Setenv("NEXUSQUEST_MARKET_CONTRACT", "0x95e938152166aB0998c635E096ef16f055cCdb0A")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.App.IsDev() {
		t.Fatal("expected dev environment")
	}
	if cfg.Chain.ChainID != 1337 {
		t.Fatalf("unexpected chain id %d", cfg.Chain.ChainID)
	}
	if cfg.Market.ScanLimit != 10 {
		t.Fatalf("unexpected scan limit %d", cfg.Market.ScanLimit)
	}
}

func TestLoadRejectsBadContractAddress(t *testing.T) {
	setRequired(t)
	t.Setenv("NEXUSQUEST_GAME_CONTRACT", "not-an-address")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed contract address")
	}
}

func TestLoadRejectsZeroScanLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("NEXUSQUEST_MARKET_SCAN_LIMIT", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero scan limit")
	}
}
