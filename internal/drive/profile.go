// Package drive describes drive profiles and the opaque transport
// (DriveHandle) this module's engine issues typed MMC operations against,
// and implements read_sector: the profile-aware, C2-unshifting sector
// acquisition routine.
package drive

import (
	"fmt"

	"github.com/bismurphy/redumper/internal/sector"
)

// Type tags a drive family's quirk set.
type Type int

const (
	Generic Type = iota
	Plextor
	LGASUS2
	LGASUS3
)

func (t Type) String() string {
	switch t {
	case Plextor:
		return "PLEXTOR"
	case LGASUS2:
		return "LG_ASUS2"
	case LGASUS3:
		return "LG_ASUS3"
	default:
		return "GENERIC"
	}
}

// ReadMethod selects which MMC command family is used to acquire sectors.
type ReadMethod int

const (
	ReadMethodBE ReadMethod = iota
	ReadMethodBECDDA
	ReadMethodD8
)

// SectorOrder enumerates the component layouts a drive can deliver a raw
// read in.
type SectorOrder int

const (
	OrderDataC2Sub SectorOrder = iota
	OrderDataSub
	OrderDataC2
	OrderData
)

// Layout describes byte offsets of each plane within one drive read
// buffer. A missing plane is marked by Offset == Size (spec.md §4.4: "a
// missing plane is encoded as offset == raw size").
type Layout struct {
	DataOffset     int
	C2Offset       int
	SubcodeOffset  int
	Size           int
}

// SectorOrderLayout returns the plane layout for a given SectorOrder.
func SectorOrderLayout(order SectorOrder) Layout {
	const full = sector.RawSize + sector.C2Size + sector.SubcodeSize
	switch order {
	case OrderDataC2Sub:
		return Layout{DataOffset: 0, C2Offset: sector.RawSize, SubcodeOffset: sector.RawSize + sector.C2Size, Size: full}
	case OrderDataSub:
		size := sector.RawSize + sector.SubcodeSize
		return Layout{DataOffset: 0, C2Offset: size, SubcodeOffset: sector.RawSize, Size: size}
	case OrderDataC2:
		size := sector.RawSize + sector.C2Size
		return Layout{DataOffset: 0, C2Offset: sector.RawSize, SubcodeOffset: size, Size: size}
	default: // OrderData
		return Layout{DataOffset: 0, C2Offset: sector.RawSize, SubcodeOffset: sector.RawSize, Size: sector.RawSize}
	}
}

// HasC2 reports whether the layout carries a C2 plane.
func (l Layout) HasC2() bool { return l.C2Offset < l.Size }

// HasSubcode reports whether the layout carries a subcode plane.
func (l Layout) HasSubcode() bool { return l.SubcodeOffset < l.Size }

// Profile is the per-drive quirk and geometry set, populated from the
// embedded drive database and overridable from the CLI.
type Profile struct {
	VendorID     string
	ProductID    string
	Type         Type
	ReadMethod   ReadMethod
	SectorOrder  SectorOrder
	ReadOffset   int // samples, signed
	C2Shift      int // bytes, >= 0
	PregapStart  int // LBA, negative
}

// DefaultProfile is used when no drive database entry matches and no CLI
// override is given.
func DefaultProfile() Profile {
	return Profile{
		Type:        Generic,
		ReadMethod:  ReadMethodBE,
		SectorOrder: OrderDataC2Sub,
		ReadOffset:  0,
		C2Shift:     0,
		PregapStart: -150,
	}
}

// ApplyOverrides merges any non-zero-value override field onto p, matching
// the CLI's drive-type/drive-read-offset/... flags (spec.md §6).
type Overrides struct {
	Type        *Type
	ReadOffset  *int
	C2Shift     *int
	PregapStart *int
	ReadMethod  *ReadMethod
	SectorOrder *SectorOrder
}

func (p Profile) ApplyOverrides(o Overrides) Profile {
	if o.Type != nil {
		p.Type = *o.Type
	}
	if o.ReadOffset != nil {
		p.ReadOffset = *o.ReadOffset
	}
	if o.C2Shift != nil {
		p.C2Shift = *o.C2Shift
	}
	if o.PregapStart != nil {
		p.PregapStart = *o.PregapStart
	}
	if o.ReadMethod != nil {
		p.ReadMethod = *o.ReadMethod
	}
	if o.SectorOrder != nil {
		p.SectorOrder = *o.SectorOrder
	}
	return p
}

func (p Profile) String() string {
	return fmt.Sprintf("%s %s/%s offset=%d c2shift=%d pregap=%d", p.Type, p.VendorID, p.ProductID, p.ReadOffset, p.C2Shift, p.PregapStart)
}
