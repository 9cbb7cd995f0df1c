package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/talvor/tiled"
)

type scanCmd struct {
	load loadFlags
}

func (c *scanCmd) Name() string     { return "scan" }
func (c *scanCmd) Synopsis() string { return "load every .tmx map below a directory" }
func (c *scanCmd) Usage() string {
	return "tmxinfo scan [-strict] [-j <n>] <dir>\n"
}
func (c *scanCmd) SetFlags(f *flag.FlagSet) { c.load.register(f) }

func (c *scanCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	dir, ok := singleArg(f, c.Usage())
	if !ok {
		return subcommands.ExitUsageError
	}

	files, err := tiled.FindMapFiles(dir)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}

	bar := progressbar.Default(int64(len(files)), "loading maps")
	failed := 0
	mm := tiled.NewMapManager(dir, c.load.params())
	err = mm.Load(func(path string, err error) {
		if err != nil {
			failed++
			log.WithField("path", path).Warn(err)
		}
		bar.Add(1)
	})
	bar.Finish()

	for _, name := range mm.Names() {
		m, _ := mm.GetMap(name)
		fmt.Printf("%s: %dx%d, %d tilesets, %d layers\n", name, m.Width, m.Height, len(m.Tilesets), len(m.Layers))
	}
	if err != nil {
		log.Errorf("%d of %d maps failed to load", failed, len(files))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
