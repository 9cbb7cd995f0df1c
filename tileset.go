package tiled

import (
	"encoding/xml"
	"image"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/talvor/tiled/properties"
)

// Frame is one step of a tile animation.
type Frame struct {
	TileID   uint32
	Duration time.Duration
}

// Animation lists frames in playback order.
type Animation []Frame

func (a Animation) TotalDuration() time.Duration {
	var d time.Duration
	for _, f := range a {
		d += f.Duration
	}
	return d
}

// FrameAt returns the local tile id shown at elapsed time t, looping.
func (a Animation) FrameAt(t time.Duration) (uint32, bool) {
	total := a.TotalDuration()
	if len(a) == 0 || total <= 0 {
		return 0, false
	}
	t %= total
	if t < 0 {
		t += total
	}
	for _, f := range a {
		if t < f.Duration {
			return f.TileID, true
		}
		t -= f.Duration
	}
	return a[len(a)-1].TileID, true
}

// TileSet is a loaded tileset. Geometry fields are read-only after loading;
// per-tile metadata goes through the accessor methods.
type TileSet struct {
	Name       string
	Source     string
	TileWidth  int
	TileHeight int
	TileCount  int
	Columns    int
	Margin     int
	Spacing    int
	Image      *Image
	Properties *properties.Properties

	tileProperties map[uint32]*properties.Properties
	animations     map[uint32]Animation
}

// TileRect returns the source rectangle of a local tile id within Image.
func (ts *TileSet) TileRect(id uint32) (image.Rectangle, bool) {
	if int64(id) >= int64(ts.TileCount) {
		return image.Rectangle{}, false
	}
	columns := ts.columns()
	if columns <= 0 {
		return image.Rectangle{}, false
	}
	col, row := int(id)%columns, int(id)/columns
	origin := image.Pt(
		col*(ts.TileWidth+ts.Spacing)+ts.Margin,
		row*(ts.TileHeight+ts.Spacing)+ts.Margin,
	)
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(ts.TileWidth, ts.TileHeight))}, true
}

// columns falls back to the image width when the document omits it.
func (ts *TileSet) columns() int {
	if ts.Columns > 0 {
		return ts.Columns
	}
	if ts.Image == nil || ts.TileWidth+ts.Spacing <= 0 {
		return 0
	}
	return (ts.Image.Width() - 2*ts.Margin + ts.Spacing) / (ts.TileWidth + ts.Spacing)
}

// TileImage crops a tile out of the tileset image.
func (ts *TileSet) TileImage(id uint32) (*image.NRGBA, error) {
	rect, ok := ts.TileRect(id)
	if !ok {
		return nil, errors.Wrapf(ErrTileOutOfRange, "tile %d of %d in %q", id, ts.TileCount, ts.Name)
	}
	if ts.Image == nil || !ts.Image.Loaded() {
		return nil, errors.Wrapf(ErrImageFreed, "tileset %q", ts.Name)
	}
	return imaging.Crop(ts.Image.NRGBA(), rect), nil
}

// TileProperties returns the properties declared on a tile, or nil.
func (ts *TileSet) TileProperties(id uint32) *properties.Properties {
	return ts.tileProperties[id]
}

func (ts *TileSet) SetTileProperties(id uint32, p *properties.Properties) {
	if ts.tileProperties == nil {
		ts.tileProperties = make(map[uint32]*properties.Properties)
	}
	ts.tileProperties[id] = p
}

func (ts *TileSet) RemoveTileProperties(id uint32) {
	delete(ts.tileProperties, id)
}

// TileAnimation returns the animation declared on a tile, or nil.
func (ts *TileSet) TileAnimation(id uint32) Animation {
	return ts.animations[id]
}

func (ts *TileSet) SetTileAnimation(id uint32, a Animation) {
	if ts.animations == nil {
		ts.animations = make(map[uint32]Animation)
	}
	ts.animations[id] = a
}

func (ts *TileSet) RemoveTileAnimation(id uint32) {
	delete(ts.animations, id)
}

// AnimatedTiles returns the ids of tiles with an animation, ascending.
func (ts *TileSet) AnimatedTiles() []uint32 {
	return sortedKeys(ts.animations)
}

// TilesWithProperties returns the ids of tiles with properties, ascending.
func (ts *TileSet) TilesWithProperties() []uint32 {
	return sortedKeys(ts.tileProperties)
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

type xmlProperties struct {
	Property []properties.Entry `xml:"property"`
}

type xmlImage struct {
	Source *string `xml:"source,attr"`
	Width  string  `xml:"width,attr"`
	Height string  `xml:"height,attr"`
}

type xmlFrame struct {
	TileID   string `xml:"tileid,attr"`
	Duration string `xml:"duration,attr"`
}

type xmlTile struct {
	ID         *string        `xml:"id,attr"`
	Properties *xmlProperties `xml:"properties"`
	Animation  *struct {
		Frames []xmlFrame `xml:"frame"`
	} `xml:"animation"`
}

// xmlTileset is both a .tsx root and a <tileset> element inside a map.
type xmlTileset struct {
	XMLName    xml.Name       `xml:"tileset"`
	FirstGID   *string        `xml:"firstgid,attr"`
	Source     *string        `xml:"source,attr"`
	Name       *string        `xml:"name,attr"`
	TileWidth  string         `xml:"tilewidth,attr"`
	TileHeight string         `xml:"tileheight,attr"`
	TileCount  string         `xml:"tilecount,attr"`
	Columns    string         `xml:"columns,attr"`
	Margin     string         `xml:"margin,attr"`
	Spacing    string         `xml:"spacing,attr"`
	Image      *xmlImage      `xml:"image"`
	Properties *xmlProperties `xml:"properties"`
	Tiles      []xmlTile      `xml:"tile"`
}

// atoi parses a numeric attribute; missing or malformed text reads as zero.
func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func atof(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// LoadTileset loads a .tsx tileset with default parameters.
func LoadTileset(path string) (*TileSet, error) {
	return LoadTilesetParams(path, LoadParams{})
}

func LoadTilesetParams(path string, params LoadParams) (*TileSet, error) {
	params = params.withDefaults()
	logger := params.Logger.WithField("path", path)

	if err := checkExtension(path, tilesetExtensions); err != nil {
		return nil, err
	}
	data, err := readDocument(path, logger)
	if err != nil {
		return nil, err
	}

	var doc xmlTileset
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "tileset %q: %v", path, err)
	}

	logger.Debug("loading tileset")
	ts, err := buildTileset(&doc, filepath.Dir(path), params)
	if err != nil {
		return nil, errors.Wrapf(err, "tileset %q", path)
	}
	ts.Source = path
	return ts, nil
}

// buildTileset maps a parsed tileset element onto the model. Relative image
// paths are resolved against baseDir.
func buildTileset(doc *xmlTileset, baseDir string, params LoadParams) (*TileSet, error) {
	if doc.Name == nil {
		return nil, errors.Wrap(ErrMalformedDocument, "missing name attribute")
	}
	if doc.Image == nil || doc.Image.Source == nil {
		return nil, errors.Wrap(ErrMalformedDocument, "missing image source")
	}

	ts := &TileSet{
		Name:       *doc.Name,
		TileWidth:  atoi(doc.TileWidth),
		TileHeight: atoi(doc.TileHeight),
		TileCount:  atoi(doc.TileCount),
		Columns:    atoi(doc.Columns),
		Margin:     atoi(doc.Margin),
		Spacing:    atoi(doc.Spacing),
	}
	logger := params.Logger.WithField("tileset", ts.Name)

	var err error
	if ts.Properties, err = params.properties(doc.Properties, logger); err != nil {
		return nil, err
	}

	for _, tile := range doc.Tiles {
		if tile.ID == nil {
			return nil, errors.Wrap(ErrMalformedDocument, "tile without id")
		}
		id, err := strconv.ParseUint(*tile.ID, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedDocument, "tile id %q", *tile.ID)
		}

		if tile.Properties != nil {
			p, err := params.properties(tile.Properties, logger.WithField("tile", id))
			if err != nil {
				return nil, errors.Wrapf(err, "tile %d", id)
			}
			ts.SetTileProperties(uint32(id), p)
		}

		if tile.Animation != nil && len(tile.Animation.Frames) > 0 {
			anim := make(Animation, 0, len(tile.Animation.Frames))
			for _, f := range tile.Animation.Frames {
				anim = append(anim, Frame{
					TileID:   uint32(max(atoi(f.TileID), 0)),
					Duration: time.Duration(max(atoi(f.Duration), 0)) * time.Millisecond,
				})
			}
			ts.SetTileAnimation(uint32(id), anim)
		}
	}

	imagePath := resolvePath(baseDir, *doc.Image.Source)
	if ts.Image, err = params.ImageLoader(imagePath); err != nil {
		return nil, err
	}
	return ts, nil
}
