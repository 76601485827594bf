package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/monsterpi/svcinstall/internal/models"
)

func TestHeapLimitMB(t *testing.T) {
	tests := []struct {
		name  string
		opts  []string
		want  int
		found bool
	}{
		{"underscore", []string{"--harmony", "--max_old_space_size=4096"}, 4096, true},
		{"dash", []string{"--max-old-space-size=512"}, 512, true},
		{"last wins", []string{"--max_old_space_size=1024", "--max-old-space-size=2048"}, 2048, true},
		{"absent", []string{"--harmony"}, 0, false},
		{"garbage", []string{"--max_old_space_size=lots"}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := heapLimitMB(tt.opts)
			if got != tt.want || ok != tt.found {
				t.Errorf("heapLimitMB(%v) = %d, %v; want %d, %v", tt.opts, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestMemoryCheck(t *testing.T) {
	c := NewMemoryCheck([]string{"--max_old_space_size=4096"})
	c.totalMemory = func(context.Context) (uint64, error) { return 2 << 30, nil }

	findings, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Severity != models.SeverityWarn {
		t.Errorf("findings = %+v, want one warning", findings)
	}

	c.totalMemory = func(context.Context) (uint64, error) { return 8 << 30, nil }
	findings, err = c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Severity != models.SeverityInfo {
		t.Errorf("findings = %+v, want one info", findings)
	}
}

func TestMemoryCheck_NoLimitConfigured(t *testing.T) {
	c := NewMemoryCheck(nil)
	c.totalMemory = func(context.Context) (uint64, error) {
		t.Fatal("memory should not be queried without a heap limit")
		return 0, nil
	}
	findings, err := c.Run(context.Background())
	if err != nil || len(findings) != 0 {
		t.Errorf("Run() = %v, %v; want no findings", findings, err)
	}
}

func TestDiskCheck_MeasuresExistingAncestor(t *testing.T) {
	dir := t.TempDir()
	var measured string
	c := NewDiskCheck(filepath.Join(dir, "not", "yet", "created"), 100)
	c.freeSpace = func(_ context.Context, path string) (uint64, error) {
		measured = path
		return 10 << 20, nil
	}

	findings, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if measured != dir {
		t.Errorf("measured %q, want %q", measured, dir)
	}
	if len(findings) != 1 || findings[0].Severity != models.SeverityWarn {
		t.Errorf("findings = %+v, want one warning", findings)
	}
}

func TestDiskCheck_DisabledWithoutMinimum(t *testing.T) {
	if NewDiskCheck("/", 0).IsAvailable() {
		t.Error("disk check should be unavailable when min_free_mb is 0")
	}
}

func TestRuntimeCheck(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are a unix concept")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "node")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	findings, err := NewRuntimeCheck(exe).Run(context.Background())
	if err != nil || len(findings) != 0 {
		t.Errorf("executable runtime: findings = %+v, err = %v", findings, err)
	}
	findings, err = NewRuntimeCheck(plain).Run(context.Background())
	if err != nil || len(findings) != 1 {
		t.Errorf("non-executable runtime: findings = %+v, err = %v", findings, err)
	}
	if NewRuntimeCheck("").IsAvailable() {
		t.Error("runtime check should be unavailable without a runtime")
	}
}

type stubCheck struct {
	name      string
	available bool
	findings  []models.Finding
	err       error
}

func (s stubCheck) Name() string      { return s.name }
func (s stubCheck) IsAvailable() bool { return s.available }
func (s stubCheck) Run(context.Context) ([]models.Finding, error) {
	return s.findings, s.err
}

func TestRegistry_RunAll(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRegistry(zap.New(core))

	r.Register(stubCheck{name: "a", available: true, findings: []models.Finding{warn("a", "low")}})
	r.Register(stubCheck{name: "b", available: false, findings: []models.Finding{info("b", "never")}})
	r.Register(stubCheck{name: "c", available: true, err: errors.New("boom")})
	r.Register(stubCheck{name: "d", available: true, findings: []models.Finding{info("d", "ok")}})

	if got := len(r.Checks()); got != 3 {
		t.Errorf("registered %d checks, want 3", got)
	}

	findings := r.RunAll(context.Background())
	if len(findings) != 2 || findings[0].Check != "a" || findings[1].Check != "d" {
		t.Errorf("findings = %+v, want a then d", findings)
	}
	if n := logs.FilterMessage("Check failed").Len(); n != 1 {
		t.Errorf("logged %d check failures, want 1", n)
	}
	if n := logs.FilterMessage("Preflight warning").Len(); n != 1 {
		t.Errorf("logged %d warnings, want 1", n)
	}
}

type fakePlatform struct {
	model string
	err   error
}

func (p fakePlatform) Name() string                { return "fake" }
func (p fakePlatform) BoardModel() (string, error) { return p.model, p.err }

func TestHostCheck(t *testing.T) {
	tests := []struct {
		name     string
		platform fakePlatform
		wantWarn bool
		contains string
	}{
		{"raspberry pi", fakePlatform{model: "Raspberry Pi 4 Model B Rev 1.4"}, false, "Raspberry Pi 4"},
		{"other board", fakePlatform{model: "Rockchip RK3588"}, true, "Rockchip"},
		{"unknown board", fakePlatform{}, true, "fake platform"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := NewHostCheck(tt.platform).Run(context.Background())
			if err != nil {
				t.Skipf("host info unavailable: %v", err)
			}
			if len(findings) != 2 {
				t.Fatalf("findings = %+v, want OS and board", findings)
			}
			board := findings[1]
			if (board.Severity == models.SeverityWarn) != tt.wantWarn {
				t.Errorf("severity = %s, wantWarn %v", board.Severity, tt.wantWarn)
			}
			if !strings.Contains(board.Message, tt.contains) {
				t.Errorf("message %q does not mention %q", board.Message, tt.contains)
			}
		})
	}
}
