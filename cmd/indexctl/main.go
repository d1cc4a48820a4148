package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/indexbind/binding"
	"github.com/wippyai/indexbind/configuration"
	"github.com/wippyai/indexbind/host"
	"github.com/wippyai/indexbind/resource"
	"github.com/wippyai/indexbind/storage"
)

var VERSION = "dev"

func main() {
	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", VERSION)
		return
	}

	if c.ConfigFile != "" {
		if err := configuration.LoadFileUnderFlags(c.ConfigFile, &c, flag.CommandLine); err != nil {
			fatal(err)
		}
	}
	if err := c.Validate(); err != nil {
		fatal(err)
	}

	if c.ShowConfig {
		json.MarshalWrite(os.Stdout, c, jsontext.WithIndent("    "))
		fmt.Println()
	}

	logger, err := c.Logger()
	if err != nil {
		fatal(err)
	}
	defer logger.Sync()
	storage.SetLogger(logger)
	binding.SetLogger(logger)
	host.SetLogger(logger)

	b := binding.New(resource.NewTable(resource.WithCapacity(c.MaxHandles)), logger)
	defer b.Table().Close()

	if c.Interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fatal(fmt.Errorf("interactive mode needs a terminal"))
		}
		if err := runInteractive(&c, b); err != nil {
			fatal(err)
		}
		return
	}

	if err := run(&c, b); err != nil {
		logger.Debug("command failed", zap.String("op", c.Op), zap.Error(err))
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
