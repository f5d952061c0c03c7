package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/provelslice/internal/config"
	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/pipeline"
	"github.com/Faultbox/provelslice/internal/report"
	"github.com/Faultbox/provelslice/internal/slicer"
	"github.com/Faultbox/provelslice/pkg/formats"
)

func cmdSlice(args []string) {
	fs := flag.NewFlagSet("slice", flag.ExitOnError)
	output := fs.String("o", "", "Output G-code file (default stdout)")
	quiet := fs.Bool("q", false, "Do not show progress")
	cfg := setup(fs, args)

	if fs.NArg() < 1 {
		fatalf("Usage: provelslice slice [options] <mesh.stl>")
	}

	res := runPipeline(cfg, fs.Arg(0), !*quiet)

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := res.Program.WriteTo(w); err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Fprintln(w)

	printSummary(res)
}

func cmdPreview(args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	png := fs.String("o", "profile.png", "Profile image (.png, .svg or .pdf)")
	chart := fs.String("chart", "", "Feedrate chart HTML file")
	cfg := setup(fs, args)

	if fs.NArg() < 1 {
		fatalf("Usage: provelslice preview [options] <mesh.stl>")
	}

	res := runPipeline(cfg, fs.Arg(0), false)
	params, _ := cfg.Params()

	err := report.SaveProfilePNG(*png, fs.Arg(0), res.Center, params.Up(),
		report.Series{Name: "raw", Levels: res.Raw},
		report.Series{Name: "compensated", Levels: res.Compensated},
		report.Series{Name: "final", Levels: res.Final},
	)
	if err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", *png)

	if *chart != "" {
		f, err := os.Create(*chart)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer f.Close()
		if err := report.FeedrateChart(f, "Feedrate per level", res.Feedrates); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *chart)
	}
	printSummary(res)
}

// runPipeline loads the mesh and runs every stage, drawing a progress bar on
// stderr while slicing.
func runPipeline(cfg *config.Config, path string, progress bool) *pipeline.Result {
	params, err := cfg.Params()
	if err != nil {
		fatalf("Config error: %v", err)
	}
	params.Emit.Version = version

	stl, err := formats.LoadSTL(path)
	if err != nil {
		fatalf("Error: %v", err)
	}
	logger.Info("mesh loaded",
		zap.String("path", path),
		zap.String("name", stl.Name),
		zap.Int("triangles", stl.Triangles()))

	task := pipeline.Start(mesh.FromPositions(stl.Positions), params)
	var done slicer.Message
	for msg := range task.Messages() {
		switch msg.Type {
		case slicer.MessageProgress:
			if progress {
				drawProgress(msg.Fraction)
			}
		case slicer.MessageDone:
			done = msg
		}
	}
	if progress {
		drawProgress(1)
		fmt.Fprintln(os.Stderr)
	}
	if done.Err != nil {
		fatalf("Slicing failed: %v", done.Err)
	}

	res, err := pipeline.Finish(done.Levels, done.Center, params)
	if err != nil {
		fatalf("Error: %v", err)
	}
	return res
}

func drawProgress(f float64) {
	const width = 40
	n := int(f * width)
	fmt.Fprintf(os.Stderr, "\rSlicing [%s%s] %3.0f%%", strings.Repeat("=", n), strings.Repeat(" ", width-n), f*100)
}

func printSummary(res *pipeline.Result) {
	out.Fprintf(os.Stderr, "Rings:       %d\n", len(res.Final))
	out.Fprintf(os.Stderr, "Points:      %d\n", res.Final.PointCount())
	out.Fprintf(os.Stderr, "Blended:     %d points\n", res.Moved)
	out.Fprintf(os.Stderr, "Feedrate:    %.0f mm/min (min %.0f, max %.0f)\n", res.GlobalFeedrate, res.Summary.Min, res.Summary.Max)
	out.Fprintf(os.Stderr, "Print time:  %s\n", res.PrintTimeText)
	out.Fprintf(os.Stderr, "Lines:       %d\n", res.Program.Len())
}
