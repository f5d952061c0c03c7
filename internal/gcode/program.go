// Package gcode turns ring sequences into RepRapFirmware motion programs
// for the cup printer and reads such programs back for inspection.
package gcode

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Program is an append-only list of G-code lines.
type Program struct {
	lines []string
}

// Append adds lines to the end of the program.
func (p *Program) Append(lines ...string) {
	p.lines = append(p.lines, lines...)
}

// Appendf formats and appends one line.
func (p *Program) Appendf(format string, args ...any) {
	p.lines = append(p.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the program lines.
func (p *Program) Lines() []string {
	return append([]string(nil), p.lines...)
}

// Len returns the number of lines.
func (p *Program) Len() int {
	return len(p.lines)
}

// String joins the lines with newlines.
func (p *Program) String() string {
	return strings.Join(p.lines, "\n")
}

// Bytes returns the program text.
func (p *Program) Bytes() []byte {
	return []byte(p.String())
}

// WriteTo writes the program text to w, one line per newline.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, line := range p.lines {
		if i > 0 {
			n, err := io.WriteString(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
		n, err := io.WriteString(w, line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// formatNumber rounds f to decimals places and drops trailing zeros.
func formatNumber(f float64, decimals int) string {
	scale := math.Pow(10, float64(decimals))
	r := math.Round(f*scale) / scale
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
