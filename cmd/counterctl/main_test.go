package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/config"
)

func TestResolveSettingsFlagsWin(t *testing.T) {
	t.Setenv(config.EnvKeyDeployment, "prod")
	t.Setenv(config.EnvKeyCounterID, "env-counter")
	t.Setenv(config.EnvKeyCallerID, "env-caller")

	got, err := resolveSettings("", "local", "flag-counter", "flag-caller")
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	want := config.Settings{Environment: "local", CounterID: "flag-counter", RelayID: "flag-caller"}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

func TestResolveSettingsFillsFromEnv(t *testing.T) {
	t.Setenv(config.EnvKeyDeployment, "prod")
	t.Setenv(config.EnvKeyCounterID, "env-counter")
	t.Setenv(config.EnvKeyCallerID, "env-caller")

	got, err := resolveSettings("", "", "flag-counter", "")
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if got.Environment != "prod" || got.CounterID != "flag-counter" || got.RelayID != "env-caller" {
		t.Fatalf("settings = %+v", got)
	}
}

func TestResolveSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.toml")
	body := "environment = \"prod\"\ncounter_canister_id = \"file-counter\"\ncaller_canister_id = \"file-caller\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := resolveSettings(path, "", "", "")
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if got.Environment != "prod" || got.CounterID != "file-counter" || got.RelayID != "file-caller" {
		t.Fatalf("settings = %+v", got)
	}
}

func TestLoadIdentity(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "identity.pem")
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := loadIdentity(path)
	if err != nil {
		t.Fatalf("loadIdentity: %v", err)
	}
	if id.Sender().IsAnonymous() {
		t.Fatal("signed identity must not be anonymous")
	}
	sig, err := id.Sign([]byte("msg"))
	if err != nil || len(sig) != ed25519.SignatureSize {
		t.Fatalf("Sign: sig len %d, err %v", len(sig), err)
	}
}

func TestLoadIdentityRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.pem")
	if err := os.WriteFile(path, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadIdentity(path); err == nil {
		t.Fatal("expected error for non-PEM input")
	}
	if _, err := loadIdentity(filepath.Join(t.TempDir(), "missing.pem")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
