package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Faultbox/provelslice/internal/agent"
	"github.com/Faultbox/provelslice/internal/config"
	"github.com/Faultbox/provelslice/internal/gcode"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/printer"
	"github.com/Faultbox/provelslice/internal/store"
	"github.com/Faultbox/provelslice/pkg/formats"
	"github.com/Faultbox/provelslice/pkg/math"
)

func cmdInspect(args []string) {
	if len(args) < 1 {
		fatalf("Usage: provelslice inspect <program.gcode>")
	}

	f, err := os.Open(args[0])
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer f.Close()

	s, err := gcode.ReadProgram(f)
	if err != nil {
		fatalf("Error: %v", err)
	}

	out.Printf("Program:        %s\n", args[0])
	out.Printf("Material:       %s\n", s.Material)
	out.Printf("Estimated time: %s\n", s.EstimatedTime)
	out.Printf("Lines:          %d\n", s.Lines)
	out.Printf("Motion lines:   %d\n", s.MotionLines)
	out.Printf("Levels:         %d\n", s.Levels)
	out.Printf("Extrusion:      %.2f\n", s.Extrusion)
	out.Printf("Max feedrate:   %.0f mm/min\n", s.MaxFeedrate)
	if s.MotionLines > 0 {
		out.Printf("Z range:        %.2f .. %.2f\n", s.MinZ, s.MaxZ)
	}
	out.Printf("Teardown:       %t\n", s.HasTeardown)
}

func cmdCylinder(args []string) {
	fs := flag.NewFlagSet("cylinder", flag.ExitOnError)
	output := fs.String("o", "cylinder.stl", "Output STL file")
	diameter := fs.Float64("diameter", 70, "Inner diameter in mm")
	height := fs.Float64("height", 50, "Height in mm")
	segments := fs.Int("n", 128, "Wall segments")
	up := fs.String("up", "y", "Vertical axis (y or z)")
	ascii := fs.Bool("ascii", false, "Write ASCII STL")
	fs.Parse(args)

	axis, err := math.ParseUpAxis(*up)
	if err != nil {
		fatalf("Error: %v", err)
	}

	m := mesh.Cylinder(*diameter/2, *height, *segments, axis)
	name := strings.TrimSuffix(filepath.Base(*output), filepath.Ext(*output))
	if err := formats.SaveSTL(*output, name, m.Positions(), *ascii); err != nil {
		fatalf("Error: %v", err)
	}
	out.Printf("Wrote %s (%d triangles)\n", *output, m.Len())
}

func cmdUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	address := fs.String("printer", "", "Printer address (default from config)")
	name := fs.String("name", "", "Remote file name (default local base name)")
	cfg := setup(fs, args)

	if fs.NArg() < 1 {
		fatalf("Usage: provelslice upload [options] <program.gcode>")
	}
	if *address == "" {
		*address = cfg.Printer.Address
	}
	if *name == "" {
		*name = filepath.Base(fs.Arg(0))
	}

	program, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}

	client, err := printer.NewDuetClient(*address, cfg.Printer.Password)
	if err != nil {
		fatalf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := client.Send(ctx, *name, program); err != nil {
		fatalf("Upload failed: %v", err)
	}
	out.Printf("Uploaded %s to %s (%d bytes, crc32 %s)\n", *name, client.Address(), len(program), printer.Checksum(program))
}

func cmdStream(args []string) {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	port := fs.String("port", "", "Serial port (default from config)")
	baud := fs.Int("baud", 0, "Baud rate (default from config)")
	cfg := setup(fs, args)

	if fs.NArg() < 1 {
		fatalf("Usage: provelslice stream [options] <program.gcode>")
	}
	if *port == "" {
		*port = cfg.Printer.SerialPort
	}
	if *baud == 0 {
		*baud = cfg.Printer.Baud
	}
	if *port == "" {
		fatalf("Error: no serial port configured")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer f.Close()

	s, err := printer.OpenSerial(*port, *baud)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := s.Stream(ctx, f, func(sent int) {
		if sent%100 == 0 {
			out.Fprintf(os.Stderr, "\rSent %d lines", sent)
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatalf("Stream stopped after %d lines: %v", n, err)
	}
	out.Printf("Streamed %d lines to %s\n", n, *port)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", "", "Listen address (default from config)")
	cfg := setup(fs, args)
	if *listen != "" {
		cfg.Agent.Listen = *listen
	}
	if err := serve(cfg); err != nil {
		fatalf("Agent error: %v", err)
	}
}

// serve runs the agent with the settings store opened for writing.
func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := cfg.StorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	return agent.Serve(ctx, cfg, s, version)
}
