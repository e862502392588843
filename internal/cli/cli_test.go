package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/billed/internal/app"
	"github.com/dvloznov/billed/internal/config"
	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/session"
	"github.com/rs/zerolog"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer, *app.App) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		Session: config.SessionConfig{Secret: "test-secret", TTL: time.Hour},
		Store:   config.StoreConfig{Backend: config.StoreMemory},
		Receipts: config.ReceiptsConfig{
			Backend: config.ReceiptsLocal,
			Dir:     filepath.Join(dir, "receipts"),
		},
	}

	backends, err := app.Open(context.Background(), cfg, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("app.Open: %v", err)
	}

	var out bytes.Buffer
	a := NewApp(cfg, zerolog.New(io.Discard), &out, func(context.Context) (*app.App, error) {
		return backends, nil
	})
	return a, &out, backends
}

func TestSeedAndList(t *testing.T) {
	a, out, _ := newTestApp(t)

	if err := a.Run([]string{"seed", "--file", "testdata/bills.json"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if !strings.Contains(out.String(), "Seeded 4 bills.") {
		t.Errorf("seed output = %q", out.String())
	}

	out.Reset()
	if err := a.Run([]string{"list"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header and 4 rows, got %d lines:\n%s", len(lines), out.String())
	}
	wantOrder := []string{"4 Avr. 04", "3 Mar. 03", "2 Fév. 02", "1 Jan. 01"}
	for i, want := range wantOrder {
		if !strings.HasPrefix(lines[i+1], want) {
			t.Errorf("row %d = %q, want prefix %q", i, lines[i+1], want)
		}
	}
}

func TestList_FilterByEmail(t *testing.T) {
	a, out, _ := newTestApp(t)
	if err := a.Run([]string{"seed", "-f", "testdata/bills.json"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	out.Reset()
	if err := a.Run([]string{"list", "--email", "b@b"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if strings.Contains(out.String(), "a@a") || !strings.Contains(out.String(), "qcCK3SzECmaZAGRrHjaC") {
		t.Errorf("unexpected list output:\n%s", out.String())
	}

	out.Reset()
	if err := a.Run([]string{"list", "--email", "nobody@billed.tld"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No bills found.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSeed_MissingFile(t *testing.T) {
	a, _, _ := newTestApp(t)
	if err := a.Run([]string{"seed", "--file", "testdata/missing.json"}); err == nil {
		t.Error("expected an error for a missing fixture")
	}
}

func TestToken(t *testing.T) {
	a, out, _ := newTestApp(t)

	if err := a.Run([]string{"token", "--email", "admin@billed.tld", "--role", "admin"}); err != nil {
		t.Fatalf("token failed: %v", err)
	}

	s, err := session.NewTokenService("test-secret", time.Hour).Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}
	if s.Type != domain.RoleAdmin || s.Email != "admin@billed.tld" {
		t.Errorf("session = %+v", s)
	}

	if err := a.Run([]string{"token", "--email", "a@a", "--role", "boss"}); err == nil {
		t.Error("expected an error for an unknown role")
	}
}

func TestUpload(t *testing.T) {
	a, out, _ := newTestApp(t)

	dir := t.TempDir()
	png := filepath.Join(dir, "facture.png")
	if err := os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := a.Run([]string{"upload", png}); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if !strings.Contains(out.String(), `"fileName": "facture.png"`) {
		t.Errorf("upload output = %q", out.String())
	}

	pdf := filepath.Join(dir, "facture.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := a.Run([]string{"upload", pdf})
	if err == nil || !strings.Contains(err.Error(), "jpg, jpeg et png") {
		t.Errorf("expected invalid file error, got %v", err)
	}
}

func TestMigrate_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Store:    config.StoreConfig{Backend: config.StoreSQLite, SQLitePath: filepath.Join(dir, "billed.db")},
		Receipts: config.ReceiptsConfig{Backend: config.ReceiptsLocal, Dir: filepath.Join(dir, "receipts")},
	}

	var out bytes.Buffer
	a := NewApp(cfg, zerolog.New(io.Discard), &out, nil)
	if err := a.Run([]string{"migrate"}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out.String(), "Schema ready (sqlite store).") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(cfg.Store.SQLitePath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}
