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
)

type tilesetCmd struct {
	load loadFlags
}

func (c *tilesetCmd) Name() string     { return "tileset" }
func (c *tilesetCmd) Synopsis() string { return "summarize a .tsx tileset" }
func (c *tilesetCmd) Usage() string {
	return "tmxinfo tileset [-strict] <file.tsx>\n"
}
func (c *tilesetCmd) SetFlags(f *flag.FlagSet) { c.load.register(f) }

func (c *tilesetCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	path, ok := singleArg(f, c.Usage())
	if !ok {
		return subcommands.ExitUsageError
	}

	ts, err := tiled.LoadTilesetParams(path, c.load.params())
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	printTileset(os.Stdout, ts)
	return subcommands.ExitSuccess
}

func printTileset(w io.Writer, ts *tiled.TileSet) {
	fmt.Fprintf(w, "tileset %q (%s)\n", ts.Name, ts.Source)
	fmt.Fprintf(w, "  %d tiles of %dx%d px, %d columns, margin %d, spacing %d\n",
		ts.TileCount, ts.TileWidth, ts.TileHeight, ts.Columns, ts.Margin, ts.Spacing)
	fmt.Fprintf(w, "  image %s %dx%d\n", ts.Image.Source, ts.Image.Width(), ts.Image.Height())
	printProperties(w, "  ", ts.Properties)

	for _, id := range ts.AnimatedTiles() {
		anim := ts.TileAnimation(id)
		fmt.Fprintf(w, "  tile %d animation:", id)
		for _, f := range anim {
			fmt.Fprintf(w, " %d/%v", f.TileID, f.Duration)
		}
		fmt.Fprintln(w)
	}
	for _, id := range ts.TilesWithProperties() {
		fmt.Fprintf(w, "  tile %d properties:\n", id)
		printProperties(w, "    ", ts.TileProperties(id))
	}
}
