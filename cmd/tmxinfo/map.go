package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
	"github.com/talvor/tiled"
	"github.com/talvor/tiled/properties"
)

type mapCmd struct {
	load loadFlags
}

func (c *mapCmd) Name() string     { return "map" }
func (c *mapCmd) Synopsis() string { return "summarize a .tmx map" }
func (c *mapCmd) Usage() string {
	return "tmxinfo map [-strict] [-j <n>] <file.tmx>\n"
}
func (c *mapCmd) SetFlags(f *flag.FlagSet) { c.load.register(f) }

func (c *mapCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	path, ok := singleArg(f, c.Usage())
	if !ok {
		return subcommands.ExitUsageError
	}

	m, err := tiled.LoadFileParams(path, c.load.params())
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	printMap(os.Stdout, m)
	return subcommands.ExitSuccess
}

func printMap(w io.Writer, m *tiled.Map) {
	fmt.Fprintf(w, "map %s\n", m.Source)
	fmt.Fprintf(w, "  grid %dx%d, tiles %dx%d px, %s\n", m.Width, m.Height, m.TileWidth, m.TileHeight, m.Orientation)
	printProperties(w, "  ", m.Properties)

	for i, ts := range m.Tilesets {
		fmt.Fprintf(w, "  tileset #%d %q firstgid=%d tiles=%d\n", i, ts.Name, m.FirstGIDs[i], ts.TileCount)
	}
	for _, l := range m.Layers {
		used := 0
		for ref := range l.Tiles.Values() {
			if ref.Valid() {
				used++
			}
		}
		fmt.Fprintf(w, "  layer %q %d/%d cells used, visible=%v opacity=%g\n", l.Name, used, l.Tiles.Len(), l.Visible, l.Opacity)
		printProperties(w, "    ", l.Properties)
	}
}

func printProperties(w io.Writer, indent string, p *properties.Properties) {
	for _, key := range p.Keys() {
		v, _ := p.Lookup(key)
		fmt.Fprintf(w, "%s%s (%s) = %s\n", indent, key, v.Kind(), v)
	}
}

type cellCmd struct {
	load  loadFlags
	layer string
	x, y  int
}

func (c *cellCmd) Name() string     { return "cell" }
func (c *cellCmd) Synopsis() string { return "decode one layer cell of a .tmx map" }
func (c *cellCmd) Usage() string {
	return "tmxinfo cell -layer <name> -x <col> -y <row> <file.tmx>\n"
}
func (c *cellCmd) SetFlags(f *flag.FlagSet) {
	c.load.register(f)
	f.StringVar(&c.layer, "layer", "", "Layer name")
	f.IntVar(&c.x, "x", 0, "Column")
	f.IntVar(&c.y, "y", 0, "Row")
}

func (c *cellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	path, ok := singleArg(f, c.Usage())
	if !ok {
		return subcommands.ExitUsageError
	}

	m, err := tiled.LoadFileParams(path, c.load.params())
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	l, err := m.GetLayer(c.layer)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	p, err := l.Tiles.At(c.x, c.y)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	printCell(os.Stdout, m, *p)
	return subcommands.ExitSuccess
}

func printCell(w io.Writer, m *tiled.Map, ref tiled.TileRef) {
	if !ref.Valid() {
		fmt.Fprintln(w, "empty")
		return
	}
	gid, _ := m.GID(ref)
	ts, rect, ok := m.TileRect(ref)
	if !ok {
		fmt.Fprintf(w, "gid %d: tileset #%d tile %d out of range\n", gid, ref.Tileset(), ref.ID())
		return
	}
	fmt.Fprintf(w, "gid %d: tileset #%d %q tile %d rect %v\n", gid, ref.Tileset(), ts.Name, ref.ID(), rect)
	fmt.Fprintf(w, "flip h=%v v=%v d=%v\n", ref.FlippedHorizontally(), ref.FlippedVertically(), ref.FlippedDiagonally())
	printProperties(w, "  ", ts.TileProperties(ref.ID()))
	if anim := ts.TileAnimation(ref.ID()); anim != nil {
		fmt.Fprintf(w, "  animation: %d frames, %v\n", len(anim), anim.TotalDuration())
	}
}
