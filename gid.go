package tiled

import (
	"sort"
)

const (
	GIDHorizontalFlip = 0x80000000
	GIDVerticalFlip   = 0x40000000
	GIDDiagonalFlip   = 0x20000000
	GIDRotatedHex120  = 0x10000000
	GIDFlags          = GIDHorizontalFlip | GIDVerticalFlip | GIDDiagonalFlip | GIDRotatedHex120
	GIDMask           = 0x0fffffff
)

// GID is a map-wide tile id as stored in layer data, flag bits included.
type GID uint32

// Clean strips the flag bits.
func (g GID) Clean() GID { return g & GIDMask }

func (g GID) Flags() Flags { return Flags(g & GIDFlags) }

// Flags holds the orientation bits of a GID in their stored positions.
type Flags uint32

func (f Flags) FlippedHorizontally() bool { return f&GIDHorizontalFlip != 0 }
func (f Flags) FlippedVertically() bool   { return f&GIDVerticalFlip != 0 }
func (f Flags) FlippedDiagonally() bool   { return f&GIDDiagonalFlip != 0 }

// TileRef is a decoded layer cell. The zero value refers to no tile.
type TileRef struct {
	tileset uint32 // ordinal+1; 0 marks an empty cell
	id      uint32
	flags   Flags
}

// NewTileRef returns a reference to local tile id of the tileset at ordinal.
func NewTileRef(ordinal int, id uint32, flags Flags) TileRef {
	return TileRef{tileset: uint32(ordinal) + 1, id: id, flags: flags & GIDFlags}
}

func (t TileRef) Valid() bool { return t.tileset != 0 }

// Tileset returns the ordinal of the tileset in Map.Tilesets, or -1.
func (t TileRef) Tileset() int { return int(t.tileset) - 1 }

// ID returns the tileset-local tile index.
func (t TileRef) ID() uint32   { return t.id }
func (t TileRef) Flags() Flags { return t.flags }

func (t TileRef) FlippedHorizontally() bool { return t.flags.FlippedHorizontally() }
func (t TileRef) FlippedVertically() bool   { return t.flags.FlippedVertically() }
func (t TileRef) FlippedDiagonally() bool   { return t.flags.FlippedDiagonally() }

type tilesetOffset struct {
	firstGID GID
	ordinal  int
}

// Resolver maps clean GIDs onto (tileset ordinal, local id) pairs. Tilesets
// keep their document order as ordinals while lookups walk the first-gids in
// sorted order.
type Resolver struct {
	firstGIDs []GID           // document order
	sorted    []tilesetOffset // descending by firstGID
}

// NewResolver takes each tileset's first-gid in document order.
func NewResolver(firstGIDs []GID) *Resolver {
	r := &Resolver{
		firstGIDs: append([]GID(nil), firstGIDs...),
		sorted:    make([]tilesetOffset, len(firstGIDs)),
	}
	for i, g := range firstGIDs {
		r.sorted[i] = tilesetOffset{firstGID: g, ordinal: i}
	}
	sort.SliceStable(r.sorted, func(i, j int) bool { return r.sorted[i].firstGID > r.sorted[j].firstGID })
	return r
}

func (r *Resolver) FirstGID(ordinal int) (GID, bool) {
	if ordinal < 0 || ordinal >= len(r.firstGIDs) {
		return 0, false
	}
	return r.firstGIDs[ordinal], true
}

// Resolve finds the tileset with the highest first-gid not above gid. Tileset
// ranges are assumed not to overlap.
func (r *Resolver) Resolve(gid GID) (ordinal int, id uint32, ok bool) {
	gid = gid.Clean()
	if gid == 0 {
		return 0, 0, false
	}
	for _, ts := range r.sorted {
		if gid >= ts.firstGID {
			return ts.ordinal, uint32(gid - ts.firstGID), true
		}
	}
	return 0, 0, false
}

// Decode turns a raw layer value into a TileRef. Zero and unresolvable ids
// decode to the empty reference whatever their flag bits.
func (r *Resolver) Decode(raw GID) TileRef {
	ordinal, id, ok := r.Resolve(raw.Clean())
	if !ok {
		return TileRef{}
	}
	return NewTileRef(ordinal, id, raw.Flags())
}

// Encode is the inverse of Decode for valid references.
func (r *Resolver) Encode(t TileRef) (GID, bool) {
	if !t.Valid() {
		return 0, false
	}
	first, ok := r.FirstGID(t.Tileset())
	if !ok {
		return 0, false
	}
	gid := first + GID(t.id)
	if gid&^GIDMask != 0 {
		return 0, false
	}
	return gid | GID(t.flags), true
}
