package main

import (
	"flag"
	"path/filepath"

	"github.com/Faultbox/provelslice/internal/config"
)

// cmdConfig writes the effective configuration (file, stored settings and
// flags merged) so later runs pick it up without flags.
func cmdConfig(args []string) {
	action := "save"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		action, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("config "+action, flag.ExitOnError)
	output := fs.String("o", "", "Write to this file instead of the user config directory")
	cfg := setup(fs, args)

	switch action {
	case "save":
		var err error
		path := *output
		if path == "" {
			path = filepath.Join(config.ConfigDir(), "config.yaml")
			err = cfg.Save()
		} else {
			err = cfg.SaveTo(path)
		}
		if err != nil {
			fatalf("Error: %v", err)
		}
		out.Printf("Wrote %s\n", path)

	case "path":
		out.Printf("%s\n", filepath.Join(config.ConfigDir(), "config.yaml"))

	default:
		fatalf("Unknown config action: %s", action)
	}
}
