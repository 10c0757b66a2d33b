// Package model defines the immutable entity set extracted from one
// substation configuration snapshot: equipment, terminals, connectivity
// nodes, and the strict containment tree substation → voltage level → bay.
//
// All entities are constructed once per conversion run and read-only
// thereafter. Identity is the source URI; SourceOrder carries the document
// position for stable tie-breaks.
package model
