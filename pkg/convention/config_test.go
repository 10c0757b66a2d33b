package convention

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/model"
)

// restoreRTE re-registers the stock convention after tests that override
// the shared registry.
func restoreRTE(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { Register(NewRTE(nil, PositionLeft)) })
}

func TestLoadConfig(t *testing.T) {
	restoreRTE(t)

	path := filepath.Join(t.TempDir(), "conventions.toml")
	content := `
[convention.rte]
coupling_position = "right"

[convention.rte.layers]
DIS_SS = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	c, err := Get("rte")
	if err != nil {
		t.Fatalf("Get(rte) error: %v", err)
	}
	if c.CouplingBayPosition() != PositionRight {
		t.Errorf("CouplingBayPosition = %s, want right", c.CouplingBayPosition())
	}
	if got := c.EquipmentLayer(model.TypeDisconnect, "SS"); got != 2 {
		t.Errorf("EquipmentLayer(DIS, SS) = %d, want override 2", got)
	}
	// Untouched layers keep their defaults.
	if got := c.EquipmentLayer(model.TypeBreaker, ""); got != 3 {
		t.Errorf("EquipmentLayer(CBR) = %d, want default 3", got)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("LoadConfig error = %v, want INVALID_INPUT", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[convention.rte\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("LoadConfig error = %v, want INVALID_INPUT", err)
	}
}

func TestApplyUnknownConvention(t *testing.T) {
	cfg := &Config{Conventions: map[string]Overrides{"ansi": {}}}
	err := cfg.Apply()
	if !errors.Is(err, errors.ErrCodeInvalidConvention) {
		t.Errorf("Apply error = %v, want INVALID_CONVENTION", err)
	}
}

func TestApplyInvalidCouplingPosition(t *testing.T) {
	restoreRTE(t)

	cfg := &Config{Conventions: map[string]Overrides{
		"rte": {CouplingPosition: "center"},
	}}
	err := cfg.Apply()
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Apply error = %v, want INVALID_INPUT", err)
	}
}
