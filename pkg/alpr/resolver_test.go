package alpr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func notOnPath(string) (string, error) {
	return "", errors.New("not found")
}

func TestResolvePrefersPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "alpr.exe"))

	r := NewResolver(dir, "")
	r.lookPath = func(string) (string, error) { return "/usr/bin/alpr", nil }

	res := r.Resolve()
	if res.BinaryPath != "/usr/bin/alpr" {
		t.Fatalf("expected PATH binary, got %q", res.BinaryPath)
	}
	if !res.BundledDirExists {
		t.Fatal("expected bundled dir to exist")
	}
}

func TestResolveFallsBackToBundled(t *testing.T) {
	dir := t.TempDir()
	bundled := filepath.Join(dir, "alpr.exe")
	writeFile(t, bundled)
	conf := filepath.Join(dir, "openalpr.conf")
	writeFile(t, conf)

	r := NewResolver(dir, "")
	r.lookPath = notOnPath

	res := r.Resolve()
	if res.BinaryPath != bundled {
		t.Fatalf("expected bundled binary %q, got %q", bundled, res.BinaryPath)
	}
	if res.ConfigPath != conf {
		t.Fatalf("expected bundled config %q, got %q", conf, res.ConfigPath)
	}
}

func TestResolveConfigOverrideWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "openalpr.conf"))

	r := NewResolver(dir, "/etc/openalpr/openalpr.conf")
	r.lookPath = notOnPath

	res := r.Resolve()
	if res.ConfigPath != "/etc/openalpr/openalpr.conf" {
		t.Fatalf("expected override config, got %q", res.ConfigPath)
	}
}

func TestResolveNothingFound(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "missing"), "")
	r.lookPath = notOnPath

	res := r.Resolve()
	if res.BinaryPath != "" || res.ConfigPath != "" {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
	if res.BundledDirExists {
		t.Fatal("expected bundled dir to be reported missing")
	}
}
