package tiled_test

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talvor/tiled"
	"github.com/talvor/tiled/grid"
	"github.com/talvor/tiled/internal/testutil"
)

const objectsTSX = `<?xml version="1.0" encoding="UTF-8"?>
<tileset name="objects" tilewidth="4" tileheight="4" tilecount="4" columns="2">
 <image source="objects.png" width="8" height="8"/>
</tileset>
`

// writeMapFixture lays out terrain.tsx (9 tiles) next to the map and
// sets/objects.tsx (4 tiles) in a subdirectory, then writes the map.
func writeMapFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	writeTerrain(t, dir)
	testutil.WritePNG(t, dir, "sets/objects.png", 8, 8, testutil.Solid(red))
	testutil.WriteFile(t, dir, "sets/objects.tsx", objectsTSX)
	return testutil.WriteFile(t, dir, name, body)
}

func tmx(width, height int, inner string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="%d" height="%d" tilewidth="4" tileheight="4" infinite="0">
%s
</map>
`, width, height, inner)
}

const twoTilesets = `
 <tileset firstgid="1" source="terrain.tsx"/>
 <tileset firstgid="17" source="sets/objects.tsx"/>`

const map1 = `
 <properties>
  <property name="TestProperty" type="float" value="1.5"/>
 </properties>` + twoTilesets + `
 <layer id="1" name="Ground" width="4" height="2">
  <data encoding="csv">
1,2,3,4,
5,6,7,17
</data>
 </layer>
 <layer id="2" name="NamedLayer" width="4" height="2" opacity="0.5" visible="0" offsetx="2" offsety="-3">
  <properties>
   <property name="TestProperty" type="float" value="2"/>
  </properties>
  <data encoding="csv">18,18,18,18,18,18,18,18</data>
 </layer>`

func TestLoadMap(t *testing.T) {
	path := writeMapFixture(t, t.TempDir(), "map1.tmx", tmx(4, 2, map1))

	m, err := tiled.LoadFile(path)
	require.NoError(t, err)

	require.Equal(t, 4, m.Width)
	require.Equal(t, 2, m.Height)
	require.Equal(t, 4, m.TileWidth)
	require.Equal(t, 4, m.TileHeight)
	require.Equal(t, "orthogonal", m.Orientation)
	require.Len(t, m.Tilesets, 2)
	require.Equal(t, "terrain", m.Tilesets[0].Name)
	require.Equal(t, "objects", m.Tilesets[1].Name)
	require.Equal(t, []tiled.GID{1, 17}, m.FirstGIDs)
	require.Len(t, m.Layers, 2)

	ground := m.Layers[0]
	require.Equal(t, 1, ground.ID)
	require.Equal(t, "Ground", ground.Name)
	require.True(t, ground.Visible)
	require.Equal(t, 1.0, ground.Opacity)
	w, h := ground.Tiles.Size()
	require.Equal(t, 4, w)
	require.Equal(t, 2, h)

	ref, ok := ground.Tiles.Get(3, 0)
	require.True(t, ok)
	require.Equal(t, 0, ref.Tileset())
	require.Equal(t, uint32(3), ref.ID())

	ref, _ = ground.Tiles.Get(3, 1)
	require.True(t, ref.Valid())
	require.Equal(t, 1, ref.Tileset())
	require.Equal(t, uint32(0), ref.ID())

	named := m.Layers[1]
	require.False(t, named.Visible)
	require.Equal(t, 0.5, named.Opacity)
	for ref := range named.Tiles.Values() {
		require.Equal(t, 1, ref.Tileset())
		require.Equal(t, uint32(1), ref.ID())
	}
}

func TestMapProperties(t *testing.T) {
	m, err := tiled.LoadFile(writeMapFixture(t, t.TempDir(), "map1.tmx", tmx(4, 2, map1)))
	require.NoError(t, err)

	v, ok := m.Properties.GetFloat("TestProperty")
	require.True(t, ok)
	require.Equal(t, float32(1.5), v)

	v, ok = m.Layers[1].Properties.GetFloat("TestProperty")
	require.True(t, ok)
	require.Equal(t, float32(2), v)

	require.Nil(t, m.Layers[0].Properties)
}

func TestGetLayer(t *testing.T) {
	m, err := tiled.LoadFile(writeMapFixture(t, t.TempDir(), "map1.tmx", tmx(4, 2, map1)))
	require.NoError(t, err)

	l, err := m.GetLayer("NamedLayer")
	require.NoError(t, err)
	require.Same(t, m.Layers[1], l)

	_, err = m.GetLayer("Nope")
	require.ErrorIs(t, err, tiled.ErrLayerNotFound)
}

func TestMapHelpers(t *testing.T) {
	m, err := tiled.LoadFile(writeMapFixture(t, t.TempDir(), "map1.tmx", tmx(4, 2, map1)))
	require.NoError(t, err)

	ref, _ := m.Layers[0].Tiles.Get(3, 1)
	ts, rect, ok := m.TileRect(ref)
	require.True(t, ok)
	require.Equal(t, "objects", ts.Name)
	require.Equal(t, image.Rect(0, 0, 4, 4), rect)

	gid, ok := m.GID(ref)
	require.True(t, ok)
	require.Equal(t, tiled.GID(17), gid)

	_, ok = m.TilesetFor(tiled.TileRef{})
	require.False(t, ok)
	_, ok = m.TilesetFor(tiled.NewTileRef(2, 0, 0))
	require.False(t, ok)

	require.Equal(t, image.Pt(12, 4), m.CellOrigin(m.Layers[0], 3, 1))
	require.Equal(t, image.Pt(14, 1), m.CellOrigin(m.Layers[1], 3, 1))

	m.FreeImages()
	for _, ts := range m.Tilesets {
		require.False(t, ts.Image.Loaded())
	}
}

func TestFirstGIDOrderIndependentOfDocumentOrder(t *testing.T) {
	body := tmx(2, 1, `
 <tileset firstgid="17" source="sets/objects.tsx"/>
 <tileset firstgid="1" source="terrain.tsx"/>
 <layer name="l"><data encoding="csv">17,9</data></layer>`)
	m, err := tiled.LoadFile(writeMapFixture(t, t.TempDir(), "m.tmx", body))
	require.NoError(t, err)

	require.Equal(t, "objects", m.Tilesets[0].Name)
	require.Equal(t, []tiled.GID{17, 1}, m.FirstGIDs)

	a, _ := m.Layers[0].Tiles.Get(0, 0)
	require.Equal(t, 0, a.Tileset())
	require.Equal(t, uint32(0), a.ID())

	b, _ := m.Layers[0].Tiles.Get(1, 0)
	require.Equal(t, 1, b.Tileset())
	require.Equal(t, uint32(8), b.ID())
}

func TestFlippedTiles(t *testing.T) {
	body := tmx(2, 2, twoTilesets+`
 <layer name="flips"><data encoding="csv">
1,2147483649,
1073741825,3221225473
</data></layer>`)
	m, err := tiled.LoadFile(writeMapFixture(t, t.TempDir(), "map2.tmx", body))
	require.NoError(t, err)
	tiles := m.Layers[0].Tiles

	plain, _ := tiles.Get(0, 0)
	require.False(t, plain.FlippedHorizontally() || plain.FlippedVertically() || plain.FlippedDiagonally())

	h, _ := tiles.Get(1, 0)
	require.True(t, h.FlippedHorizontally())
	require.False(t, h.FlippedVertically())

	v, _ := tiles.Get(0, 1)
	require.True(t, v.FlippedVertically())
	require.False(t, v.FlippedHorizontally())

	hv, _ := tiles.Get(1, 1)
	require.True(t, hv.FlippedHorizontally() && hv.FlippedVertically())

	for ref := range tiles.Values() {
		require.Equal(t, 0, ref.Tileset())
		require.Equal(t, uint32(0), ref.ID())
	}
}

func TestEmptyTiles(t *testing.T) {
	body := tmx(3, 1, twoTilesets+`
 <layer name="empty"><data encoding="csv">0,0,2147483648</data></layer>`)
	m, err := tiled.LoadFile(writeMapFixture(t, t.TempDir(), "map3.tmx", body))
	require.NoError(t, err)

	for ref := range m.Layers[0].Tiles.Values() {
		require.False(t, ref.Valid())
	}
	require.True(t, m.Layers[0].Empty())
	require.True(t, grid.Equal(m.Layers[0].Tiles, grid.New[tiled.TileRef](3, 1)))
}

func TestEmbeddedTileset(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "img/inline.png", 8, 4, testutil.Solid(green))
	body := tmx(2, 1, `
 <tileset firstgid="1" name="inline" tilewidth="4" tileheight="4" tilecount="2" columns="2">
  <image source="img/inline.png" width="8" height="4"/>
  <tile id="1"><properties><property name="solid" type="bool" value="true"/></properties></tile>
 </tileset>
 <layer name="l"><data encoding="csv">2,1</data></layer>`)
	m, err := tiled.LoadFile(testutil.WriteFile(t, dir, "inline.tmx", body))
	require.NoError(t, err)

	ts := m.Tilesets[0]
	require.Equal(t, "inline", ts.Name)
	require.Empty(t, ts.Source)
	solid, ok := ts.TileProperties(1).GetBool("solid")
	require.True(t, ok)
	require.True(t, solid)

	ref, _ := m.Layers[0].Tiles.Get(0, 0)
	require.Equal(t, uint32(1), ref.ID())
}

func TestLayerErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		layer string
		want  error
	}{
		{"short stream", `<layer name="l"><data encoding="csv">1,2,3</data></layer>`, tiled.ErrInvalidDecodedDataLen},
		{"long stream", `<layer name="l"><data encoding="csv">1,2,3,4,5</data></layer>`, tiled.ErrInvalidDecodedDataLen},
		{"garbage", `<layer name="l"><data encoding="csv">1,x,3,4</data></layer>`, tiled.ErrInvalidTileData},
		{"negative", `<layer name="l"><data encoding="csv">1,-2,3,4</data></layer>`, tiled.ErrInvalidTileData},
		{"base64", `<layer name="l"><data encoding="base64">AQAAAA==</data></layer>`, tiled.ErrUnknownEncoding},
		{"compressed", `<layer name="l"><data encoding="csv" compression="zlib">1,2,3,4</data></layer>`, tiled.ErrUnknownEncoding},
		{"no data", `<layer name="l"/>`, tiled.ErrMalformedDocument},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := writeMapFixture(t, t.TempDir(), "bad.tmx", tmx(2, 2, twoTilesets+tc.layer))
			_, err := tiled.LoadFile(path)
			require.ErrorIs(t, err, tc.want)
			require.ErrorContains(t, err, `layer #0 "l"`)
		})
	}
}

func TestTilesetFailureAbortsMap(t *testing.T) {
	body := tmx(1, 1, `
 <tileset firstgid="1" source="terrain.tsx"/>
 <tileset firstgid="10" source="missing.tsx"/>
 <layer name="l"><data encoding="csv">1</data></layer>`)
	path := writeMapFixture(t, t.TempDir(), "m.tmx", body)

	_, err := tiled.LoadFile(path)
	require.ErrorIs(t, err, tiled.ErrFileUnreadable)
	require.ErrorContains(t, err, "tileset #1")
	require.ErrorContains(t, err, "missing.tsx")
	require.ErrorContains(t, err, "m.tmx")
}

func TestMissingFirstGID(t *testing.T) {
	body := tmx(1, 1, `<tileset source="terrain.tsx"/>`)
	_, err := tiled.LoadFile(writeMapFixture(t, t.TempDir(), "m.tmx", body))
	require.ErrorIs(t, err, tiled.ErrMalformedDocument)
}

func TestParallelTilesetErrorIsDeterministic(t *testing.T) {
	var sets strings.Builder
	sets.WriteString(`<tileset firstgid="1" source="gone.tsx"/>`)
	for i := range 8 {
		fmt.Fprintf(&sets, `<tileset firstgid="%d" source="set%d.png"/>`, 100+i*10, i)
	}
	path := writeMapFixture(t, t.TempDir(), "m.tmx", tmx(1, 1, sets.String()))

	for range 5 {
		_, err := tiled.LoadFileParams(path, tiled.LoadParams{Concurrency: 4})
		require.ErrorIs(t, err, tiled.ErrFileUnreadable)
		require.NotErrorIs(t, err, tiled.ErrUnsupportedExtension)
		require.ErrorContains(t, err, "tileset #0")
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	path := writeMapFixture(t, t.TempDir(), "map1.tmx", tmx(4, 2, map1))

	seq, err := tiled.LoadFile(path)
	require.NoError(t, err)
	par, err := tiled.LoadFileParams(path, tiled.LoadParams{Concurrency: 8})
	require.NoError(t, err)

	require.Equal(t, seq.FirstGIDs, par.FirstGIDs)
	for i := range seq.Tilesets {
		require.Equal(t, seq.Tilesets[i].Name, par.Tilesets[i].Name)
	}
	for i := range seq.Layers {
		require.True(t, grid.Equal(seq.Layers[i].Tiles, par.Layers[i].Tiles))
	}
}

func TestLoadMapErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := tiled.LoadFile(filepath.Join(dir, "m.tsx"))
	require.ErrorIs(t, err, tiled.ErrUnsupportedExtension)

	_, err = tiled.LoadFile(filepath.Join(dir, "missing.tmx"))
	require.ErrorIs(t, err, tiled.ErrFileUnreadable)

	_, err = tiled.LoadFile(testutil.WriteFile(t, dir, "empty.xml", ""))
	require.ErrorIs(t, err, tiled.ErrFileUnreadable)

	_, err = tiled.LoadFile(testutil.WriteFile(t, dir, "set.tmx", objectsTSX))
	require.ErrorIs(t, err, tiled.ErrMalformedDocument)
}

func TestMapDefaultsToZero(t *testing.T) {
	m, err := tiled.LoadFile(testutil.WriteFile(t, t.TempDir(), "bare.tmx", `<map/>`))
	require.NoError(t, err)
	require.Zero(t, m.Width)
	require.Zero(t, m.Height)
	require.Zero(t, m.TileWidth)
	require.Empty(t, m.Tilesets)
	require.Empty(t, m.Layers)
	require.Nil(t, m.Properties)
}

func TestMapDimensionsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	const layer = `<layer name="l"><data encoding="csv"></data></layer>`
	for _, tc := range []struct {
		name          string
		width, height string
	}{
		{"width wraps product", "4294967296", "4294967296"},
		{"beyond int64", "99999999999999999999", "1"},
		{"height beyond uint32", "1", "4294967296"},
		{"product overflows", "4294967295", "4294967295"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, "big.tmx",
				fmt.Sprintf(`<map width="%s" height="%s">%s</map>`, tc.width, tc.height, layer))
			_, err := tiled.LoadFile(path)
			require.ErrorIs(t, err, tiled.ErrMalformedDocument)
			require.ErrorContains(t, err, "big.tmx")
		})
	}

	m, err := tiled.LoadFile(testutil.WriteFile(t, dir, "neg.tmx", `<map width="-4" height="x">`+layer+`</map>`))
	require.NoError(t, err)
	require.Zero(t, m.Width)
	require.Zero(t, m.Height)
	_, err = m.Layers[0].Tiles.At(0, 0)
	require.ErrorIs(t, err, grid.ErrOutOfBounds)
}
