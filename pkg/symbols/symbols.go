// Package symbols holds the drawing symbol catalog: for each equipment
// type, the symbol's bounding box and terminal anchor points. Renderers
// use the anchors to attach bus and feeder wires at the right offsets.
package symbols

import (
	_ "embed"
	"encoding/json"
	"os"

	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/model"
)

//go:embed symbols.json
var defaultLibraryJSON []byte

// Terminal is one wire anchor on a symbol, in symbol-local coordinates
// with the origin at the top-left corner.
type Terminal struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Orientation string  `json:"orientation"` // top, bottom, left, right
}

// Symbol describes one equipment glyph.
type Symbol struct {
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Terminals []Terminal `json:"terminals"`
}

// Library maps equipment type codes to symbols.
type Library struct {
	byType map[string]Symbol
}

// Default returns the built-in catalog covering the standard equipment
// types. The embedded file is validated at package init.
func Default() *Library {
	return defaultLibrary
}

var defaultLibrary = mustLoad(defaultLibraryJSON)

func mustLoad(data []byte) *Library {
	lib, err := parse(data)
	if err != nil {
		panic("symbols: invalid embedded catalog: " + err.Error())
	}
	return lib
}

// Load reads a symbol catalog from a JSON file, replacing the built-in
// set entirely.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read symbol catalog %s", path)
	}
	lib, err := parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse symbol catalog %s", path)
	}
	return lib, nil
}

func parse(data []byte) (*Library, error) {
	byType := make(map[string]Symbol)
	if err := json.Unmarshal(data, &byType); err != nil {
		return nil, err
	}
	return &Library{byType: byType}, nil
}

// Get returns the symbol for an equipment type code.
func (l *Library) Get(typ string) (Symbol, error) {
	norm := string(model.ParseEquipmentType(typ))
	if sym, ok := l.byType[norm]; ok {
		return sym, nil
	}
	return Symbol{}, errors.New(errors.ErrCodeSymbolNotFound, "no symbol for equipment type %q", typ)
}

// Types returns the catalog's type codes in sorted order.
func (l *Library) Types() []string {
	return model.SortedURIs(l.byType)
}

// All returns the full catalog keyed by type code. The map is a copy.
func (l *Library) All() map[string]Symbol {
	out := make(map[string]Symbol, len(l.byType))
	for k, v := range l.byType {
		out[k] = v
	}
	return out
}
