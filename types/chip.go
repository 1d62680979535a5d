// Package types defines the decoded-event domain types consumed by chipstream.
//
// Events, chips, raw hits and clusters are produced by the upstream decoder;
// chipstream only reads them.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// ChipID identifies one readout chip by its position on the detector.
// The same ChipID recurs across many events.
type ChipID struct {
	Layer  uint16 `msgpack:"layer" json:"layer"`
	Ladder uint16 `msgpack:"ladder" json:"ladder"`
	Module uint16 `msgpack:"module" json:"module"`
	Chip   uint16 `msgpack:"chip" json:"chip"`
}

// String renders the identifier token used in output file names.
func (c ChipID) String() string {
	return fmt.Sprintf("%d_%d_%d_%d", c.Layer, c.Ladder, c.Module, c.Chip)
}

// StreamWord is an opaque word of the chip's native output protocol.
type StreamWord uint16

// RawHit is a single pixel activation reported by chip firmware.
type RawHit struct {
	Row uint32 `msgpack:"row" json:"row"`
	Col uint32 `msgpack:"col" json:"col"`
	ADC uint32 `msgpack:"adc" json:"adc"`
}

// PixelAddress packs a pixel position as row<<16 | col.
type PixelAddress uint32

// NewPixelAddress packs row and col into a PixelAddress.
func NewPixelAddress(row, col uint32) PixelAddress {
	return PixelAddress((row&0xffff)<<16 | col&0xffff)
}

// Row returns the pixel row.
func (p PixelAddress) Row() uint32 { return (uint32(p) >> 16) & 0xffff }

// Col returns the pixel column.
func (p PixelAddress) Col() uint32 { return uint32(p) & 0xffff }

// Cluster is a group of adjacent hits merged by the upstream clusterer.
type Cluster struct {
	Hits []PixelAddress `msgpack:"hits" json:"hits"`
}

// Chip is one chip's activity within a single event.
type Chip struct {
	ID       ChipID       `msgpack:"id" json:"id"`
	Words    []StreamWord `msgpack:"words" json:"words"`
	Hits     []RawHit     `msgpack:"hits" json:"hits"`
	Clusters []Cluster    `msgpack:"clusters" json:"clusters"`
	// WasSplit is set when the decoder fragmented this chip's data
	// within the event.
	WasSplit bool `msgpack:"was_split" json:"was_split"`
}
