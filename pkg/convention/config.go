package convention

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gridsmith/sldgen/pkg/errors"
)

// Config carries convention overrides loaded from a TOML file:
//
//	[convention.rte]
//	coupling_position = "right"
//
//	[convention.rte.layers]
//	DIS_SS = 2
//
// Only known convention names can be overridden; overrides re-register
// the convention under its name.
type Config struct {
	Conventions map[string]Overrides `toml:"convention"`
}

// Overrides is the per-convention override block.
type Overrides struct {
	CouplingPosition string         `toml:"coupling_position"`
	Layers           map[string]int `toml:"layers"`
}

// LoadConfig reads and applies convention overrides from a TOML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read convention config %s", path)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse convention config %s", path)
	}
	if err := cfg.Apply(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply re-registers every overridden convention. Unknown names fail with
// INVALID_CONVENTION rather than silently registering a new style.
func (c *Config) Apply() error {
	for name, ov := range c.Conventions {
		switch name {
		case "rte":
			pos := Position(ov.CouplingPosition)
			switch pos {
			case "", PositionLeft, PositionRight, PositionInline:
			default:
				return errors.New(errors.ErrCodeInvalidInput,
					"invalid coupling_position %q (left, right, inline)", ov.CouplingPosition)
			}
			Register(NewRTE(ov.Layers, pos))
		default:
			return errors.New(errors.ErrCodeInvalidConvention,
				"cannot override unknown convention %q", name)
		}
	}
	return nil
}
