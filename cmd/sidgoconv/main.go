// Package main implements a command line tool for the tracker container
// format: it prints container contents and rebuilds standalone player
// binaries.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidgoconv/container"
	"github.com/retroenv/sidgoconv/convert"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type optionFlags struct {
	input  string
	output string
	base   string

	rebuild bool
	quiet   bool
	debug   bool
}

func main() {
	options := readArguments()

	if !options.quiet {
		printBanner()
	}

	if err := run(options); err != nil {
		fmt.Println(fmt.Errorf("conversion failed: %w", err))
		os.Exit(1)
	}
}

func readArguments() optionFlags {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	options := optionFlags{}

	flags.StringVar(&options.base, "base", "0x1000", "base address to relocate the player code to in rebuild mode")
	flags.BoolVar(&options.debug, "debug", false, "output debug logging")
	flags.StringVar(&options.output, "o", "", "name of the output .prg file in rebuild mode")
	flags.BoolVar(&options.quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&options.rebuild, "rebuild", false, "rebuild a standalone .prg binary from the container")

	err := flags.Parse(os.Args[1:])
	args := flags.Args()

	if err != nil || len(args) == 0 {
		printBanner()
		fmt.Printf("usage: sidgoconv [options] <container file>\n\n")
		flags.PrintDefaults()
		os.Exit(1)
	}
	options.input = args[0]

	return options
}

func printBanner() {
	fmt.Println("[----------------------------------------]")
	fmt.Println("[ sidgoconv - SID tune container tooling ]")
	fmt.Printf("[----------------------------------------]\n\n")
	fmt.Printf("version: %s\n\n", buildinfo.Version(version, commit, date))
}

func createLogger(options optionFlags) *log.Logger {
	cfg := log.DefaultConfig()
	if options.debug {
		cfg.Level = log.DebugLevel
	} else if options.quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

func run(options optionFlags) error {
	data, err := os.ReadFile(options.input)
	if err != nil {
		return fmt.Errorf("reading file '%s': %w", options.input, err)
	}
	c, err := container.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding container: %w", err)
	}

	if !options.rebuild {
		printInfo(c)
		return nil
	}
	return rebuildFile(options, c)
}

func rebuildFile(options optionFlags, c *container.Container) error {
	base, err := strconv.ParseUint(options.base, 0, 16)
	if err != nil {
		return fmt.Errorf("parsing base address '%s': %w", options.base, err)
	}

	standalone, err := convert.Rebuild(createLogger(options), c, uint16(base))
	if err != nil {
		return fmt.Errorf("rebuilding player binary: %w", err)
	}

	output := options.output
	if output == "" {
		output = options.input + ".prg"
	}
	if err := os.WriteFile(output, standalone.PRG, 0666); err != nil {
		return fmt.Errorf("writing file '%s': %w", output, err)
	}

	if !options.quiet {
		fmt.Printf("Wrote %d bytes to %s, init #%04x play #%04x\n",
			len(standalone.PRG), output, standalone.InitAddress, standalone.PlayAddress)
	}
	return nil
}

func printInfo(c *container.Container) {
	fmt.Printf("title:    %s\n", c.Descriptor.Title)
	fmt.Printf("author:   %s\n", c.Descriptor.Author)
	fmt.Printf("released: %s\n", c.Descriptor.Released)
	fmt.Printf("songs:    %d, default %d\n", c.Common.Songs, c.Common.DefaultSong)
	fmt.Printf("init:     #%04x\n", c.Common.InitAddress)
	fmt.Printf("play:     #%04x\n", c.Common.PlayAddress)
	fmt.Printf("window:   #%04x-#%04x\n", c.LoadAddress, c.WindowEnd-1)
	fmt.Printf("code:     #%04x, %d bytes\n\n", c.CodeAddress, len(c.Code))

	for _, table := range c.Tables {
		fmt.Printf("%s table '%s' at #%04x, %dx%d, %d content streams\n",
			table.Type, table.Name, table.Address, table.Columns, table.Rows,
			len(c.TableStreams(table.ID)))
	}
}
