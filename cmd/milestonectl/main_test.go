package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/milestonectl/internal/config"
	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/protocol"
	"github.com/danmuck/milestonectl/internal/tracker"
	"github.com/rs/zerolog"
)

const planJSON = `[{
	"description": "Phase 1",
	"url": "https://example.org/phase-1",
	"minCompletionDate": 0,
	"maxCompletionDate": 1700000000,
	"milestoneLeadLink": "0x0000000000000000000000000000000000000004",
	"reviewer": "0x0000000000000000000000000000000000000005",
	"reviewTime": 86400,
	"paymentSource": "0x0000000000000000000000000000000000000010",
	"payDescription": "Phase 1",
	"payRecipient": "0x0000000000000000000000000000000000000001",
	"payValue": 1000,
	"payDelay": 0
}]`

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	e := &env{stdin: strings.NewReader(stdin), stdout: &out, stderr: &errOut}
	err := run(context.Background(), e, args)
	return strings.TrimSpace(out.String()), err
}

func TestEncodeDecodeHash(t *testing.T) {
	encoded, err := runCLI(t, planJSON, "encode")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(encoded, "0x") {
		t.Fatalf("expected hex, got %q", encoded)
	}

	decoded, err := runCLI(t, encoded, "decode")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var ms []map[string]any
	if err := json.Unmarshal([]byte(decoded), &ms); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(ms) != 1 || ms[0]["payDescription"] != "Phase 1" || ms[0]["minCompletionDate"] != float64(0) {
		t.Fatalf("unexpected decode output: %s", decoded)
	}

	hash, err := runCLI(t, "", "hash", "--data", encoded)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	raw, _ := protocol.DecodeHex(encoded)
	if hash != ledger.ProposalHash(raw) {
		t.Fatalf("unexpected hash %s", hash)
	}
}

func TestEncodeRejectsUnknownKeys(t *testing.T) {
	typo := strings.Replace(planJSON, `"minCompletionDate"`, `"minCompletiondate"`, 1)
	if _, err := runCLI(t, typo, "encode"); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestDirectiveCommand(t *testing.T) {
	out, err := runCLI(t, "", "directive", "--data", "0xa9059cbb00")
	if err != nil {
		t.Fatalf("directive: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("directive output: %v", err)
	}
	if body["kind"] != "unknown" || body["selector"] != "0xa9059cbb" {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, ok := body["payDescription"]; ok {
		t.Fatalf("foreign selector should not carry payment fields: %s", out)
	}

	if _, err := runCLI(t, "", "directive", "--data", "0x8e637a33"); !protocol.IsDecodeError(err) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	if _, err := runCLI(t, "0xf9ffff", "decode"); !protocol.IsDecodeError(err) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestUnknownCommandAndHelp(t *testing.T) {
	if _, err := runCLI(t, "", "deploy"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if _, err := runCLI(t, ""); err != nil {
		t.Fatalf("usage should not fail: %v", err)
	}
	if _, err := runCLI(t, "", "decode", "--help"); err != nil {
		t.Fatalf("--help should not fail: %v", err)
	}
	if _, err := runCLI(t, "", "hash", "extra"); err == nil {
		t.Fatalf("expected unexpected argument error")
	}
}

func TestConfigCommandAndBundledConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, "", "config", "--output", path); err != nil {
		t.Fatalf("config: %v", err)
	}
	if _, err := runCLI(t, "", "config", "--validate", path); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bundled, err := os.ReadFile("config.toml")
	if err != nil {
		t.Fatalf("read bundled config: %v", err)
	}
	written, _ := os.ReadFile(path)
	if !bytes.Equal(bundled, written) {
		t.Fatalf("bundled config.toml drifted from the template")
	}
}

func TestBuildServerFromConfig(t *testing.T) {
	cfg, err := config.LoadTrackerConfig("config.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	srv, cleanup, err := buildServer(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer cleanup()
	if srv.Name != cfg.Name || srv.Addr != cfg.Addr {
		t.Fatalf("unexpected server identity: %s %s", srv.Name, srv.Addr)
	}

	cache, done, err := buildCache(context.Background(), config.CacheConfig{Backend: config.CacheNone}, zerolog.Nop())
	if err != nil {
		t.Fatalf("build cache: %v", err)
	}
	done()
	if _, ok := cache.(tracker.NopCache); !ok {
		t.Fatalf("expected NopCache, got %T", cache)
	}
	mem, _, _ := buildCache(context.Background(), config.CacheConfig{Backend: config.CacheMemory, TTL: time.Minute}, zerolog.Nop())
	if mem.Name() != "memory" {
		t.Fatalf("expected memory cache, got %s", mem.Name())
	}
}
