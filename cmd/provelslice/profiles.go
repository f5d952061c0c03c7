package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/Faultbox/provelslice/internal/config"
	"github.com/Faultbox/provelslice/internal/store"
)

func cmdProfiles(args []string) {
	action := "list"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		action, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("profiles "+action, flag.ExitOnError)
	p := config.DefaultProfile()
	fs.StringVar(&p.Name, "name", "", "Profile name")
	fs.Float64Var(&p.NozzleTemp, "nozzle-temp", p.NozzleTemp, "Nozzle temperature (°C)")
	fs.Float64Var(&p.CupTemp, "cup-temp", p.CupTemp, "Cup temperature (°C)")
	fs.Float64Var(&p.ShrinkFactor, "shrink", p.ShrinkFactor, "Shrink factor (%)")
	fs.Float64Var(&p.OutputFactor, "output-factor", p.OutputFactor, "Extrusion output factor")
	fs.Float64Var(&p.Feedrate, "feedrate", p.Feedrate, "Baseline feedrate (0 = averaged)")
	fs.Float64Var(&p.GramsPerRevolution, "grams-per-rev", p.GramsPerRevolution, "Grams per extruder revolution")
	fs.Float64Var(&p.Density, "density", p.Density, "Material density (g/mm³)")
	fs.Float64Var(&p.SecondsPerLayer, "seconds-per-layer", p.SecondsPerLayer, "Target seconds per layer")
	cfg := setup(fs, args)

	path := cfg.StorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fatalf("Error: %v", err)
	}
	s, err := store.Open(path)
	if err != nil {
		fatalf("Store error: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	name := p.Name
	if name == "" && fs.NArg() > 0 {
		name = fs.Arg(0)
	}

	switch action {
	case "list":
		profiles, err := s.ListProfiles(ctx)
		if err != nil {
			fatalf("Error: %v", err)
		}
		active, _ := s.GetSetting(ctx, store.SettingActiveProfile)
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		out.Fprintf(tw, "\tNAME\tNOZZLE\tCUP\tSHRINK\tSEC/LAYER\n")
		for _, mp := range profiles {
			mark := ""
			if mp.Name == active {
				mark = "*"
			}
			out.Fprintf(tw, "%s\t%s\t%.0f\t%.0f\t%.2f\t%.0f\n", mark, mp.Name, mp.NozzleTemp, mp.CupTemp, mp.ShrinkFactor, mp.SecondsPerLayer)
		}
		tw.Flush()

	case "show":
		if name == "" {
			fatalf("Usage: provelslice profiles show <name>")
		}
		mp, err := s.GetProfile(ctx, name)
		if err != nil {
			fatalf("Error: %v", err)
		}
		out.Printf("Name:               %s\n", mp.Name)
		out.Printf("Nozzle temp:        %.0f\n", mp.NozzleTemp)
		out.Printf("Cup temp:           %.0f\n", mp.CupTemp)
		out.Printf("Shrink factor:      %.2f%%\n", mp.ShrinkFactor)
		out.Printf("Output factor:      %.2f\n", mp.OutputFactor)
		out.Printf("Feedrate:           %.0f\n", mp.Feedrate)
		out.Printf("Grams/revolution:   %g\n", mp.GramsPerRevolution)
		out.Printf("Density:            %g\n", mp.Density)
		out.Printf("Seconds per layer:  %.0f\n", mp.SecondsPerLayer)

	case "use":
		if name == "" {
			fatalf("Usage: provelslice profiles use <name>")
		}
		if err := s.SetActiveProfile(ctx, name); err != nil {
			fatalf("Error: %v", err)
		}
		out.Printf("Active profile: %s\n", name)

	case "save":
		if name == "" {
			fatalf("Usage: provelslice profiles save -name <name> [options]")
		}
		p.Name = name
		if err := s.SaveProfile(ctx, p); err != nil {
			fatalf("Error: %v", err)
		}
		out.Printf("Saved profile %s\n", name)

	case "delete":
		if name == "" {
			fatalf("Usage: provelslice profiles delete <name>")
		}
		if err := s.DeleteProfile(ctx, name); err != nil {
			fatalf("Error: %v", err)
		}
		out.Printf("Deleted profile %s\n", name)

	default:
		fatalf("Unknown profiles action: %s", action)
	}
}
