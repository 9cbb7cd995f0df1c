package tiled

import (
	"encoding/xml"
	"image"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/talvor/tiled/grid"
	"github.com/talvor/tiled/properties"
	"golang.org/x/sync/errgroup"
)

// Map is a loaded tile map. Tilesets keep document order; TileRef.Tileset
// indexes into it. Treat exported fields as read-only.
type Map struct {
	Source      string
	Version     string
	Class       string
	Orientation string
	Width       int
	Height      int
	TileWidth   int
	TileHeight  int
	Tilesets    []*TileSet
	FirstGIDs   []GID
	Layers      []*Layer
	Properties  *properties.Properties

	resolver *Resolver
}

func (m *Map) GetLayer(name string) (*Layer, error) {
	for _, l := range m.Layers {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, errors.Wrapf(ErrLayerNotFound, "%q", name)
}

func (m *Map) Resolver() *Resolver { return m.resolver }

// TilesetFor returns the tileset a reference points into.
func (m *Map) TilesetFor(ref TileRef) (*TileSet, bool) {
	i := ref.Tileset()
	if !ref.Valid() || i >= len(m.Tilesets) {
		return nil, false
	}
	return m.Tilesets[i], true
}

// TileRect returns the tileset and source rectangle a reference draws from.
func (m *Map) TileRect(ref TileRef) (*TileSet, image.Rectangle, bool) {
	ts, ok := m.TilesetFor(ref)
	if !ok {
		return nil, image.Rectangle{}, false
	}
	rect, ok := ts.TileRect(ref.ID())
	return ts, rect, ok
}

// GID encodes a reference back into its stored layer value.
func (m *Map) GID(ref TileRef) (GID, bool) {
	return m.resolver.Encode(ref)
}

// CellOrigin returns the pixel position of cell (x, y) of layer l.
func (m *Map) CellOrigin(l *Layer, x, y int) image.Point {
	return image.Pt(
		x*m.TileWidth+int(math.Round(l.OffsetX)),
		y*m.TileHeight+int(math.Round(l.OffsetY)),
	)
}

// FreeImages releases the pixel data of every tileset image.
func (m *Map) FreeImages() {
	for _, ts := range m.Tilesets {
		if ts.Image != nil {
			ts.Image.Free()
		}
	}
}

// Layer is a tile layer sized to its map's grid.
type Layer struct {
	ID         int
	Name       string
	Visible    bool
	Opacity    float64
	OffsetX    float64
	OffsetY    float64
	Tiles      *grid.Grid[TileRef]
	Properties *properties.Properties
}

// Empty reports whether no cell references a tile.
func (l *Layer) Empty() bool {
	for ref := range l.Tiles.Values() {
		if ref.Valid() {
			return false
		}
	}
	return true
}

type xmlMap struct {
	XMLName     xml.Name       `xml:"map"`
	Version     string         `xml:"version,attr"`
	Class       string         `xml:"class,attr"`
	Orientation string         `xml:"orientation,attr"`
	Width       string         `xml:"width,attr"`
	Height      string         `xml:"height,attr"`
	TileWidth   string         `xml:"tilewidth,attr"`
	TileHeight  string         `xml:"tileheight,attr"`
	Properties  *xmlProperties `xml:"properties"`
	Tilesets    []xmlTileset   `xml:"tileset"`
	Layers      []xmlLayer     `xml:"layer"`
}

type xmlLayer struct {
	ID         string         `xml:"id,attr"`
	Name       string         `xml:"name,attr"`
	Visible    string         `xml:"visible,attr"`
	Opacity    string         `xml:"opacity,attr"`
	OffsetX    string         `xml:"offsetx,attr"`
	OffsetY    string         `xml:"offsety,attr"`
	Properties *xmlProperties `xml:"properties"`
	Data       *xmlData       `xml:"data"`
}

type xmlData struct {
	Encoding    string `xml:"encoding,attr"`
	Compression string `xml:"compression,attr"`
	Raw         string `xml:",chardata"`
}

func decodeMap(doc *xmlMap, source string, params LoadParams) (*Map, error) {
	m := &Map{
		Source:      source,
		Version:     doc.Version,
		Class:       doc.Class,
		Orientation: doc.Orientation,
		TileWidth:   atoi(doc.TileWidth),
		TileHeight:  atoi(doc.TileHeight),
	}

	var err error
	if m.Width, err = mapDimension("width", doc.Width); err != nil {
		return nil, err
	}
	if m.Height, err = mapDimension("height", doc.Height); err != nil {
		return nil, err
	}
	if m.Width != 0 && m.Height > math.MaxInt/m.Width {
		return nil, errors.Wrapf(ErrMalformedDocument, "%dx%d grid is too large", m.Width, m.Height)
	}

	if m.Properties, err = params.properties(doc.Properties, params.Logger.WithField("path", source)); err != nil {
		return nil, err
	}

	if err := m.decodeTilesets(doc.Tilesets, params); err != nil {
		return nil, err
	}
	m.resolver = NewResolver(m.FirstGIDs)

	if err := m.decodeLayers(doc.Layers, params); err != nil {
		return nil, err
	}
	return m, nil
}

// mapDimension reads the width or height of the grid. Missing, malformed and
// negative values read as zero; values beyond 32 bits are rejected.
func mapDimension(attr, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange), v > math.MaxUint32:
		return 0, errors.Wrapf(ErrMalformedDocument, "%s %q does not fit in 32 bits", attr, s)
	case err != nil, v < 0:
		return 0, nil
	}
	return int(v), nil
}

// decodeTilesets loads every tileset, fanning out over params.Concurrency
// workers. Each worker fills only its own slot; the reported error is the
// one of the earliest tileset in the document.
func (m *Map) decodeTilesets(elems []xmlTileset, params LoadParams) error {
	baseDir := filepath.Dir(m.Source)
	m.Tilesets = make([]*TileSet, len(elems))
	m.FirstGIDs = make([]GID, len(elems))
	errs := make([]error, len(elems))

	var g errgroup.Group
	g.SetLimit(params.Concurrency)
	for i := range elems {
		g.Go(func() error {
			m.Tilesets[i], m.FirstGIDs[i], errs[i] = loadMapTileset(&elems[i], baseDir, params)
			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}

	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "error loading tileset #%d", i)
		}
	}
	return nil
}

func loadMapTileset(elem *xmlTileset, baseDir string, params LoadParams) (*TileSet, GID, error) {
	if elem.FirstGID == nil {
		return nil, 0, errors.Wrap(ErrMalformedDocument, "missing firstgid")
	}
	first, err := strconv.ParseUint(*elem.FirstGID, 10, 32)
	if err != nil || first > GIDMask {
		return nil, 0, errors.Wrapf(ErrMalformedDocument, "firstgid %q", *elem.FirstGID)
	}

	if elem.Source != nil {
		ts, err := LoadTilesetParams(resolvePath(baseDir, *elem.Source), params)
		return ts, GID(first), err
	}

	ts, err := buildTileset(elem, baseDir, params)
	if err != nil {
		return nil, 0, errors.Wrap(err, "embedded tileset")
	}
	return ts, GID(first), nil
}

func (m *Map) decodeLayers(elems []xmlLayer, params LoadParams) error {
	m.Layers = make([]*Layer, 0, len(elems))
	for i := range elems {
		l, err := m.decodeLayer(&elems[i], params)
		if err != nil {
			return errors.Wrapf(err, "layer #%d %q", i, elems[i].Name)
		}
		m.Layers = append(m.Layers, l)
	}
	return nil
}

func (m *Map) decodeLayer(elem *xmlLayer, params LoadParams) (*Layer, error) {
	if elem.Data == nil {
		return nil, errors.Wrap(ErrMalformedDocument, "missing data element")
	}
	switch elem.Data.Encoding {
	case "csv", "":
	default:
		return nil, errors.Wrapf(ErrUnknownEncoding, "%q", elem.Data.Encoding)
	}
	if elem.Data.Compression != "" {
		return nil, errors.Wrapf(ErrUnknownEncoding, "compressed csv (%q)", elem.Data.Compression)
	}

	gids, err := decodeCSV(elem.Data.Raw)
	if err != nil {
		return nil, err
	}
	if len(gids) != m.Width*m.Height {
		return nil, errors.Wrapf(ErrInvalidDecodedDataLen, "got %d values for a %dx%d map", len(gids), m.Width, m.Height)
	}

	l := &Layer{
		ID:      atoi(elem.ID),
		Name:    elem.Name,
		Visible: elem.Visible != "0",
		Opacity: atof(elem.Opacity, 1),
		OffsetX: atof(elem.OffsetX, 0),
		OffsetY: atof(elem.OffsetY, 0),
		Tiles:   grid.New[TileRef](m.Width, m.Height),
	}
	for i, gid := range gids {
		*l.Tiles.Index(i) = m.resolver.Decode(gid)
	}

	logger := params.Logger.WithField("layer", elem.Name)
	if l.Properties, err = params.properties(elem.Properties, logger); err != nil {
		return nil, err
	}
	return l, nil
}

// decodeCSV splits a layer stream on commas and whitespace.
func decodeCSV(raw string) ([]GID, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	gids := make([]GID, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidTileData, "value #%d %q", i, s)
		}
		gids[i] = GID(v)
	}
	return gids, nil
}
