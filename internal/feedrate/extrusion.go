package feedrate

// Extrusion holds the inputs of the volumetric extrusion formula.
type Extrusion struct {
	Distance           float64
	LayerHeight        float64
	LineWidth          float64
	GramsPerRevolution float64
	Density            float64
	EPerRevolution     float64
	OutputFactor       float64
}

// Divisor returns the filament-equivalent volume per E unit.
func (e Extrusion) Divisor() float64 {
	if e.Density == 0 || e.EPerRevolution == 0 {
		return 0
	}
	return e.GramsPerRevolution / e.Density / e.EPerRevolution
}

// VolumetricExtrusion returns the E value that deposits a bead of the given
// length, height and width.
func VolumetricExtrusion(e Extrusion) float64 {
	div := e.Divisor()
	if div == 0 || e.Distance == 0 || e.LayerHeight == 0 || e.LineWidth == 0 {
		return 0
	}
	return e.Distance * e.LayerHeight * e.LineWidth / div * e.OutputFactor
}
