package gcode

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Stats summarizes a program read back from text.
type Stats struct {
	Lines         int
	MotionLines   int
	Extrusion     float64
	MaxFeedrate   float64
	MinZ, MaxZ    float64
	Levels        int
	EstimatedTime string
	Material      string
	HasTeardown   bool
}

// ReadProgram scans G-code and collects motion statistics. Coordinates are
// absolute and extrusion relative, as emitted by Emit.
func ReadProgram(r io.Reader) (Stats, error) {
	var s Stats
	s.MinZ, s.MaxZ = math.Inf(1), math.Inf(-1)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSpace(sc.Text())
		s.Lines++

		if strings.HasPrefix(raw, ";") {
			s.readComment(raw)
			continue
		}

		code := raw
		if i := strings.IndexByte(code, ';'); i >= 0 {
			code = code[:i]
		}
		fields := strings.Fields(code)
		if len(fields) == 0 || (fields[0] != "G0" && fields[0] != "G1") {
			continue
		}

		moved := false
		for _, f := range fields[1:] {
			if len(f) < 2 {
				continue
			}
			v, err := strconv.ParseFloat(f[1:], 64)
			if err != nil {
				return s, fmt.Errorf("line %d: bad word %q: %w", lineNo, f, err)
			}
			switch f[0] {
			case 'X', 'Y':
				moved = true
			case 'Z':
				moved = true
				s.MinZ = math.Min(s.MinZ, v)
				s.MaxZ = math.Max(s.MaxZ, v)
			case 'E':
				s.Extrusion += v
			case 'F':
				s.MaxFeedrate = math.Max(s.MaxFeedrate, v)
			}
		}
		if moved {
			s.MotionLines++
		}
	}
	if err := sc.Err(); err != nil {
		return s, err
	}

	if math.IsInf(s.MinZ, 1) {
		s.MinZ, s.MaxZ = 0, 0
	}
	return s, nil
}

func (s *Stats) readComment(line string) {
	switch {
	case line == LevelMarker:
		s.Levels++
	case line == EndMarker:
		s.HasTeardown = true
	case strings.HasPrefix(line, ";estimated printing time (normal mode)="):
		s.EstimatedTime = strings.TrimPrefix(line, ";estimated printing time (normal mode)=")
	case strings.HasPrefix(line, ";customInfo material="):
		s.Material = strings.Trim(strings.TrimPrefix(line, ";customInfo material="), `"`)
	}
}
