package gcode

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

const (
	// continuationFactor scales extrusion for every point after the first
	// of a ring.
	continuationFactor = 0.77
	// PrintMarker separates the machine preamble from the spiral.
	PrintMarker = ";--------print file in here--------"
	// LevelMarker starts every ring.
	LevelMarker = ";START NEW LEVEL"
	// EndMarker starts the teardown.
	EndMarker = ";# END GCODE SEQUENCE FOR CUP PRINT#;"
)

// Material is the subset of a material profile the program needs.
type Material struct {
	Name         string
	NozzleTemp   float64
	CupTemp      float64
	OutputFactor float64
}

// Options configures one emission.
type Options struct {
	Up math.Axis
	// Feedrates holds one feedrate per ring. When its length does not match
	// the ring count, Feedrate is used for every move.
	Feedrates []int
	Feedrate  float64

	EstimatedTime string
	Material      Material
	NozzleSize    float64
	CupSize       string
	CupHeight     float64
	// GrooveRadius is the cup groove the preamble fills and the spiral
	// starts from.
	GrooveRadius float64

	// Transition, when set, prints a ramped cup layer before the spiral.
	Transition *Transition

	Version string
	// Now stamps the header. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns settings for the 84x38 cup.
func DefaultOptions() Options {
	return Options{
		Up:            math.AxisY,
		Feedrate:      1500,
		EstimatedTime: "0h 0m 0s",
		Material:      Material{Name: "cp1", NozzleTemp: 200, CupTemp: 190, OutputFactor: 1},
		NozzleSize:    5,
		CupSize:       "84x38",
		CupHeight:     38,
		GrooveRadius:  39,
		Version:       "dev",
	}
}

// StartHeight is the machine Z of the groove fill and the first move.
func (o Options) StartHeight() float64 {
	return o.CupHeight + 5
}

// Start returns the known start position in machine coordinates.
func (o Options) Start() r3.Vec {
	return r3.Vec{X: o.GrooveRadius, Y: 0, Z: o.StartHeight()}
}

// ToMachine maps a world point onto machine X, Y and Z for the configured
// vertical axis.
func (o Options) ToMachine(p r3.Vec) r3.Vec {
	return r3.Vec{X: p.X, Y: math.Component(p, o.Up.Flip()), Z: math.Component(p, o.Up)}
}

// ToWorld is the inverse of ToMachine.
func (o Options) ToWorld(m r3.Vec) r3.Vec {
	w := r3.Vec{X: m.X}
	w = math.WithComponent(w, o.Up.Flip(), m.Y)
	return math.WithComponent(w, o.Up, m.Z)
}

// feedrateFor returns the F word for a level. A level without a usable
// per-level feedrate (an empty or single-point ring) uses the global one.
func (o Options) feedrateFor(level, levels int) string {
	if len(o.Feedrates) == levels && level < len(o.Feedrates) && o.Feedrates[level] > 0 {
		return fmt.Sprintf("%d", o.Feedrates[level])
	}
	return formatNumber(o.Feedrate, 0)
}

// Emit renders levels into a complete program: preamble, optional
// transition layer, one extruding move per ring point, teardown.
func Emit(levels ring.Levels, opts Options) *Program {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	p := &Program{}
	p.Append(preamble(opts, now())...)

	if len(levels) > 0 {
		start := opts.Start()
		p.Appendf("G1 X%s Y%s Z%s F%s",
			formatNumber(start.X, 2), formatNumber(start.Y, 2), formatNumber(start.Z, 2),
			opts.feedrateFor(0, len(levels)))

		prev := opts.ToWorld(start)
		if opts.Transition != nil {
			prev = opts.Transition.emit(p, prev, opts)
		}
		emitSpiral(p, levels, prev, opts)
	}

	p.Append(teardown()...)

	logger.Named("gcode").Info("emitted program",
		zap.Int("rings", len(levels)),
		zap.Int("moves", levels.PointCount()),
		zap.Int("lines", p.Len()))
	return p
}

func emitSpiral(p *Program, levels ring.Levels, prev r3.Vec, opts Options) {
	for i, r := range levels {
		p.Append(LevelMarker)
		switch i {
		case 0:
			p.Append("M106 P2 S0 ; set fan speed")
		case 1:
			p.Append("M106 P2 S0.5 ; set fan speed")
		}

		feed := opts.feedrateFor(i, len(levels))
		for j, pt := range r {
			factor := opts.Material.OutputFactor
			if j > 0 {
				factor *= continuationFactor
			}
			e := r3.Norm(r3.Sub(pt, prev)) * factor
			if i == 0 {
				e *= float64(j+1) / float64(len(r))
			}
			prev = pt

			p.Append(move(opts.ToMachine(pt), e, feed))
		}
	}
}

func move(m r3.Vec, e float64, feed string) string {
	return fmt.Sprintf("G1 X%s Y%s Z%s E%s F%s",
		formatNumber(m.X, 2), formatNumber(m.Y, 2), formatNumber(m.Z, 2),
		formatNumber(e, 4), feed)
}

func preamble(o Options, now time.Time) []string {
	return []string{
		fmt.Sprintf(";generated by provelslice %s on %s", o.Version, now.UTC().Format(time.RFC1123)),
		";TYPE:Custom",
		";metadata",
		fmt.Sprintf(";estimated printing time (normal mode)=%s", o.EstimatedTime),
		fmt.Sprintf(";customInfo material=%q", o.Material.Name),
		fmt.Sprintf(";customInfo nozzleSize=\"%smm\"", formatNumber(o.NozzleSize, 2)),
		fmt.Sprintf(";customInfo cupSize=%q", o.CupSize),
		fmt.Sprintf(";customInfo nozzleTemp=\"%sC\"", formatNumber(o.Material.NozzleTemp, 1)),
		";# START GCODE SEQUENCE FOR CUP PRINT#;",

		"G21 ; Set units to millimeters",
		"G90 ; Use absolute positioning",
		"M83 ; use relative distances for extrusion",

		";## Set temperatures ##",
		fmt.Sprintf("M568 P0 S%s ; set temperature for barrel", formatNumber(o.Material.NozzleTemp, 1)),
		fmt.Sprintf("M140 P1 S%s ; set cup heater temperature and continue", formatNumber(o.Material.CupTemp, 1)),

		";## Home ##",
		";G28",

		";## move to prime position/ pickup cup heater start position ##",
		fmt.Sprintf("G1 Y0 Z%s F6000 ; Z down to cup height + 10, Y back to cup center", formatNumber(o.CupHeight+10, 2)),
		"G1 X-95 ; move in to register with cup heater for pickup",
		"M116 S10 ; wait for temperatures to be reached +/-10C (including cup heater)",

		";##cup heater removal sequence##",
		"M140 P1 S0 ; cup heater off",
		"G1 Z70 F1500 ; Z up to pick up cup heater",
		"G1 X120 F2000 ; X right to park cup heater",
		"G1 Z17 F2000 ; Z down to place cup heater on bed",
		"G1 X90 F2000 ; X left to disengage cup heater",
		"set global.pelletFeedOn = true ; enable pellet feed",
		`M98 P"0:/sys/provel/prime.g" ; prime extruder`,
		"G4 S2 ; pause for prime to finish",
		fmt.Sprintf("G1 Z%s F2000 ; Z up to cup height + 5 for groove fill", formatNumber(o.StartHeight(), 2)),

		";##Groove fill",
		fmt.Sprintf("G1 X%s Y0 F1500 ; move to start of pre groove fill extrusion", formatNumber(o.GrooveRadius+11, 2)),
		"G1 E15 F300 ; extrude to make up for any ooze",
		fmt.Sprintf("G1 X%s Y0 E10 F1500 ; move to the groove edge, continue slight extrusion", formatNumber(o.GrooveRadius, 2)),
		"G1 E20 F300 ; prevent a gap at the start/end",
		fmt.Sprintf("G3 X%s Y0 I-%s J0 E1030 F600 ; fill the groove around (0,0)",
			formatNumber(o.GrooveRadius, 2), formatNumber(o.GrooveRadius, 2)),

		";#End of start gcode sequence for cup print#",
		";##Spiral vase mode socket print to start immediately following this.",
		PrintMarker,
	}
}

func teardown() []string {
	return []string{
		EndMarker,
		"M107",
		"set global.pelletFeedOn = false",
		"G4 S1 ; pause for 1 second to stop extrudate",
		`M98 P"0:/sys/provel/purge.g"`,
		"M106 S0 ; turn the blowers and fan off",
		"M140 S0 ; cup heater off",
		`M98 P"0:/sys/provel/end.g"`,
	}
}
