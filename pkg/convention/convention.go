// Package convention implements the pluggable layout rule engine. A
// Convention encodes a regional drawing style as four capabilities:
// vertical layering of equipment within a bay, vertical stacking of
// voltage levels, placement of coupling bays, and horizontal ordering of
// feeder bays.
//
// Conventions are selected by name from a registry, never by inheritance;
// adding a second regional style means registering another implementation.
package convention

import (
	"sort"
	"sync"

	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/model"
)

// Position is the placement policy for coupling bays.
type Position string

const (
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
	PositionInline Position = "inline"
)

// LayerUndefined is returned for equipment the convention has no layer
// for; such equipment sorts below everything defined.
const LayerUndefined = 999

// Convention is the capability set of one regional layout style.
// Implementations must be pure: same inputs, same ordering, always.
type Convention interface {
	// Name returns the registry name of the convention.
	Name() string

	// EquipmentLayer returns the vertical stacking order of an equipment
	// within its bay (0 = busbar side, increasing toward the feeder).
	EquipmentLayer(t model.EquipmentType, subtype string) int

	// BusbarVerticalOrder returns the voltage levels in top-to-bottom
	// stacking order. The input slice is not modified.
	BusbarVerticalOrder(levels []*model.VoltageLevel) []*model.VoltageLevel

	// CouplingBayPosition returns where coupling bays are placed relative
	// to the feeder bays of their voltage level.
	CouplingBayPosition() Position

	// BayHorizontalOrder returns the bays in left-to-right order, with
	// coupling bays pinned per CouplingBayPosition. The input slice is
	// not modified.
	BayHorizontalOrder(bays []*model.Bay) []*model.Bay
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Convention)
)

// Register adds a convention to the registry, replacing any previous
// convention with the same name.
func Register(c Convention) {
	mu.Lock()
	defer mu.Unlock()
	registry[c.Name()] = c
}

// Get returns the named convention or an INVALID_CONVENTION error listing
// the registered names.
func Get(name string) (Convention, error) {
	mu.RLock()
	defer mu.RUnlock()
	if c, ok := registry[name]; ok {
		return c, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConvention,
		"unknown convention %q (registered: %v)", name, Names())
}

// Names returns the registered convention names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortEquipment orders equipment by (layer, source order), the stable
// in-bay ordering every convention shares. Layer is the primary key and
// source order the tie-break, guaranteeing reproducible output for
// identical input.
func SortEquipment(c Convention, equipment []*model.Equipment) []*model.Equipment {
	out := make([]*model.Equipment, len(equipment))
	copy(out, equipment)
	sort.SliceStable(out, func(i, j int) bool {
		li := c.EquipmentLayer(out[i].Type, out[i].Subtype)
		lj := c.EquipmentLayer(out[j].Type, out[j].Subtype)
		if li != lj {
			return li < lj
		}
		return out[i].SourceOrder < out[j].SourceOrder
	})
	return out
}
