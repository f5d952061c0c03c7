package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/blend"
	"github.com/Faultbox/provelslice/internal/feedrate"
	"github.com/Faultbox/provelslice/internal/gcode"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/pipeline"
	"github.com/Faultbox/provelslice/internal/slicer"
	"github.com/Faultbox/provelslice/pkg/math"
)

var (
	// ErrUnknownProfile is returned when the active material is not defined.
	ErrUnknownProfile = errors.New("unknown material profile")
	// ErrInvalidCup is returned for a cup size not of the form "84x38".
	ErrInvalidCup = errors.New("invalid cup size")
)

// CupDimensions parses Machine.Cup into diameter and height.
func (c *Config) CupDimensions() (diameter, height float64, err error) {
	d, h, ok := strings.Cut(strings.ToLower(c.Machine.Cup), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCup, c.Machine.Cup)
	}
	if diameter, err = strconv.ParseFloat(strings.TrimSpace(d), 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCup, c.Machine.Cup)
	}
	if height, err = strconv.ParseFloat(strings.TrimSpace(h), 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCup, c.Machine.Cup)
	}
	return diameter, height, nil
}

// ActiveProfile returns the selected material.
func (c *Config) ActiveProfile() (MaterialProfile, error) {
	for _, p := range c.Material.Profiles {
		if p.Name == c.Material.Active {
			return p, nil
		}
	}
	return MaterialProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, c.Material.Active)
}

// SetProfile adds or replaces a material profile by name.
func (c *Config) SetProfile(p MaterialProfile) {
	for i := range c.Material.Profiles {
		if c.Material.Profiles[i].Name == p.Name {
			c.Material.Profiles[i] = p
			return
		}
	}
	c.Material.Profiles = append(c.Material.Profiles, p)
}

// NozzleOffset returns the configured offset or half the nozzle size.
func (c *Config) NozzleOffset() float64 {
	if c.Compensation.NozzleOffset != nil {
		return *c.Compensation.NozzleOffset
	}
	return c.Machine.NozzleSize / 2
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if !(c.Slicing.LayerHeight > 0) {
		return fmt.Errorf("slicing.layer_height: %w", slicer.ErrInvalidLayerHeight)
	}
	if _, err := math.ParseUpAxis(c.Slicing.UpAxis); err != nil {
		return fmt.Errorf("slicing.up_axis: %w", err)
	}
	if _, err := blend.ParseStrategy(c.Blend.Strategy); err != nil {
		return fmt.Errorf("blend.strategy: %w", err)
	}
	if c.Blend.Tolerance < 0 {
		return fmt.Errorf("blend.tolerance must not be negative: %v", c.Blend.Tolerance)
	}
	if c.Blend.MergeFraction <= 0 || c.Blend.MergeFraction > 1 {
		return fmt.Errorf("blend.merge_fraction must be in (0, 1]: %v", c.Blend.MergeFraction)
	}
	if c.Machine.NozzleSize <= 0 {
		return fmt.Errorf("machine.nozzle_size must be positive: %v", c.Machine.NozzleSize)
	}
	if _, _, err := c.CupDimensions(); err != nil {
		return fmt.Errorf("machine.cup: %w", err)
	}
	if _, err := c.ActiveProfile(); err != nil {
		return fmt.Errorf("material.active: %w", err)
	}
	return nil
}

// Params resolves the configuration into one immutable run value.
func (c *Config) Params() (pipeline.Params, error) {
	if err := c.Validate(); err != nil {
		return pipeline.Params{}, err
	}
	up, _ := math.ParseUpAxis(c.Slicing.UpAxis)
	strategy, _ := blend.ParseStrategy(c.Blend.Strategy)
	_, cupHeight, _ := c.CupDimensions()
	profile, _ := c.ActiveProfile()
	segments := slicer.NormalizeSegments(c.Slicing.Segments)

	p := pipeline.Params{
		Placement: mesh.Placement{
			Rotation:  r3.Vec{X: c.Placement.Rotate[0], Y: c.Placement.Rotate[1], Z: c.Placement.Rotate[2]},
			Offset:    r3.Vec{X: c.Placement.Translate[0], Y: c.Placement.Translate[1], Z: c.Placement.Translate[2]},
			Up:        up,
			LockDepth: c.Machine.LockDepth,
			AutoAlign: c.Placement.AutoAlign,
		},
		Slice: slicer.Params{
			LayerHeight:          c.Slicing.LayerHeight,
			Segments:             segments,
			Up:                   up,
			Clearance:            cupHeight + c.Machine.NozzleSize,
			MinCoverage:          c.Slicing.MinCoverage,
			MaxConsecutiveMisses: c.Slicing.MaxConsecutiveMisses,
			SpiralRamp:           c.Slicing.SpiralRamp,
		},
		ShrinkPercent: profile.ShrinkFactor,
		NozzleOffset:  c.NozzleOffset(),
		Blend: blend.Options{
			Tolerance:     c.Blend.Tolerance,
			Strategy:      strategy,
			MergeFraction: c.Blend.MergeFraction,
			Up:            up,
		},
		SecondsPerLayer:  profile.SecondsPerLayer,
		BaselineFeedrate: profile.Feedrate,
		PerLevelFeedrate: c.Slicing.PerLevelFeedrate,
		Emit: gcode.Options{
			Up: up,
			Material: gcode.Material{
				Name:         profile.Name,
				NozzleTemp:   profile.NozzleTemp,
				CupTemp:      profile.CupTemp,
				OutputFactor: profile.OutputFactor,
			},
			NozzleSize:   c.Machine.NozzleSize,
			CupSize:      c.Machine.Cup,
			CupHeight:    cupHeight,
			GrooveRadius: c.Machine.GrooveRadius,
			Version:      "dev",
		},
		ProgressBuffer: c.Slicing.ProgressBuffer,
	}

	for _, pt := range c.Trim.Points {
		p.TrimLine = append(p.TrimLine, r3.Vec{X: pt[0], Y: pt[1], Z: pt[2]})
	}

	if c.Transition.Enabled {
		p.Transition = &gcode.Transition{
			Segments:       slicer.NormalizeSegments(float64(c.Transition.Segments)),
			LayerHeight:    c.Slicing.LayerHeight,
			StartingHeight: c.Machine.StartingCupLayerHeight,
			Offset:         cupHeight,
			LineWidth:      c.Machine.NozzleSize * c.Machine.LineWidthAdjustment,
			Extrusion: feedrate.Extrusion{
				GramsPerRevolution: profile.GramsPerRevolution,
				Density:            profile.Density,
				EPerRevolution:     c.Machine.EPerRevolution,
				OutputFactor:       profile.OutputFactor,
			},
		}
	}
	return p, nil
}
