package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
	"github.com/talvor/tiled"
	"github.com/talvor/tiled/properties"
)

var verbose = flag.Bool("v", false, "Enable debug logging")

func init() {
	f := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(f)
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&mapCmd{}, "")
	subcommands.Register(&tilesetCmd{}, "")
	subcommands.Register(&cellCmd{}, "")
	subcommands.Register(&scanCmd{}, "")

	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	os.Exit(int(subcommands.Execute(context.Background())))
}

// loadFlags are shared by every command that loads documents.
type loadFlags struct {
	strict      bool
	concurrency int
}

func (l *loadFlags) register(f *flag.FlagSet) {
	f.BoolVar(&l.strict, "strict", false, "Fail on unsupported or incomplete properties")
	f.IntVar(&l.concurrency, "j", 1, "Number of tilesets to load in parallel")
}

func (l *loadFlags) params() tiled.LoadParams {
	p := tiled.LoadParams{
		Concurrency: l.concurrency,
		Logger:      log.StandardLogger(),
	}
	if l.strict {
		p.Policy = properties.Strict
	}
	return p
}

// singleArg returns the one positional argument or logs usage.
func singleArg(f *flag.FlagSet, usage string) (string, bool) {
	if f.NArg() != 1 {
		log.Errorf("usage: %s", usage)
		return "", false
	}
	return f.Arg(0), true
}
