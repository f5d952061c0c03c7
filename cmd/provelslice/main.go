// provelslice slices socket meshes into spiral cup-printer G-code and
// delivers programs to the printer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Faultbox/provelslice/internal/config"
	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// out formats numbers with digit grouping for terminal output.
var out = message.NewPrinter(language.English)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "slice":
		cmdSlice(args)
	case "preview":
		cmdPreview(args)
	case "inspect":
		cmdInspect(args)
	case "cylinder":
		cmdCylinder(args)
	case "profiles":
		cmdProfiles(args)
	case "config":
		cmdConfig(args)
	case "upload":
		cmdUpload(args)
	case "stream":
		cmdStream(args)
	case "serve":
		cmdServe(args)
	case "version":
		fmt.Println("provelslice", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`provelslice - spiral cup printer slicer

Usage:
  provelslice <command> [options]

Commands:
  slice <mesh.stl>              Slice a mesh into G-code (-o file, default stdout)
  preview <mesh.stl>            Write radius profile PNG and feedrate chart
  inspect <program.gcode>       Show program statistics
  cylinder                      Write a test cylinder STL
  profiles [list|show|use|save|delete]
                                Manage stored material profiles
  config [save|path]            Save the effective config (-o file)
  upload <program.gcode>        Upload a program to the Duet board
  stream <program.gcode>        Stream a program over a serial port
  serve                         Run the local HTTP agent
  version                       Print the version

Common options:
  -config <file>   Config file (default ./provelslice.yaml)
  -profile <name>  Material profile
  -store <file>    Settings database
  -debug           Debug logging

Examples:
  provelslice slice -o socket.gcode socket.stl
  provelslice slice -up z -segments 256 socket.stl > socket.gcode
  provelslice upload -printer 192.168.1.20 socket.gcode
  provelslice profiles save -name pla -nozzle-temp 210 -shrink 0.4
  provelslice config save -segments 256 -up z`)
}

// setup parses args, loads config (with stored settings overlaid when a
// store exists) and starts the logger.
func setup(fs *flag.FlagSet, args []string) *config.Config {
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("Config error: %v", err)
	}

	if err := logger.InitWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		File:    fileConfig(cfg.Logging.LogFile),
		Console: true,
		JSON:    cfg.Logging.JSON,
	}); err != nil {
		fatalf("Logger error: %v", err)
	}

	if path := cfg.StorePath(); fileExists(path) {
		s, err := store.Open(path)
		if err != nil {
			fatalf("Store error: %v", err)
		}
		defer s.Close()
		if err := s.Apply(context.Background(), cfg); err != nil {
			fatalf("Store error: %v", err)
		}
		// Flags beat stored settings.
		if *flags.Profile != "" {
			cfg.Material.Active = *flags.Profile
		}
		if err := cfg.Validate(); err != nil {
			fatalf("Config error: %v", err)
		}
	}
	return cfg
}

func fileConfig(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	logger.Sync()
	os.Exit(1)
}
