package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
h2f:
  - width_bytes: 8
    capacity_tx: 8
    capacity_rx: 8
  - width_bytes: 0
    capacity_tx: 4
    capacity_rx: 4
f2h:
  - width_bytes: 8
    capacity_tx: 8
    capacity_rx: 8
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadValidDeclaration(t *testing.T) {
	path := writeTemp(t, "decl.yaml", sampleYAML)

	decl, err := Load(path)
	require.NoError(t, err)
	require.Len(t, decl.H2F, 2)
	require.Len(t, decl.F2H, 1)

	h2f, f2h := decl.Specs()
	require.EqualValues(t, 8, h2f[0].WidthBytes)
	require.EqualValues(t, 8, h2f[0].CapacityTX)
	require.EqualValues(t, 0, h2f[1].WidthBytes, "expected zero-width signalling queue")
	require.EqualValues(t, 8, f2h[0].CapacityRX)
}

func TestLoadRejectsZeroCapacity(t *testing.T) {
	path := writeTemp(t, "bad.yaml", `
h2f:
  - width_bytes: 8
    capacity_tx: 0
    capacity_rx: 8
f2h: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for zero capacity, got nil")
	}
}

func TestLoadRejectsOversizedCapacity(t *testing.T) {
	path := writeTemp(t, "big.yaml", `
h2f:
  - width_bytes: 8
    capacity_tx: 70000
    capacity_rx: 70000
f2h: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for oversized capacity, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
