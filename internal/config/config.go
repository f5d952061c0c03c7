// Package config handles slicer configuration loading and management.
package config

// Config holds all slicer, machine and service settings.
type Config struct {
	Slicing      SlicingConfig      `yaml:"slicing"`
	Machine      MachineConfig      `yaml:"machine"`
	Compensation CompensationConfig `yaml:"compensation"`
	Blend        BlendConfig        `yaml:"blend"`
	Material     MaterialConfig     `yaml:"material"`
	Placement    PlacementConfig    `yaml:"placement"`
	Trim         TrimConfig         `yaml:"trim"`
	Transition   TransitionConfig   `yaml:"transition"`
	Printer      PrinterConfig      `yaml:"printer"`
	Store        StoreConfig        `yaml:"store"`
	Agent        AgentConfig        `yaml:"agent"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// SlicingConfig controls ray casting.
type SlicingConfig struct {
	LayerHeight          float64 `yaml:"layer_height"`
	Segments             float64 `yaml:"segments"`
	UpAxis               string  `yaml:"up_axis"`
	MinCoverage          float64 `yaml:"min_coverage"`
	MaxConsecutiveMisses int     `yaml:"max_consecutive_misses"`
	SpiralRamp           bool    `yaml:"spiral_ramp"`
	PerLevelFeedrate     bool    `yaml:"per_level_feedrate"`
	ProgressBuffer       int     `yaml:"progress_buffer"`
}

// MachineConfig describes the printer head and cup.
type MachineConfig struct {
	NozzleSize             float64 `yaml:"nozzle_size"`
	Cup                    string  `yaml:"cup"` // "<diameter>x<height>"
	GrooveRadius           float64 `yaml:"groove_radius"`
	LockDepth              float64 `yaml:"lock_depth"`
	StartingCupLayerHeight float64 `yaml:"starting_cup_layer_height"`
	LineWidthAdjustment    float64 `yaml:"line_width_adjustment"`
	EPerRevolution         float64 `yaml:"e_per_revolution"`
}

// CompensationConfig holds shrink/offset overrides.
type CompensationConfig struct {
	// NozzleOffset defaults to half the nozzle size when nil.
	NozzleOffset *float64 `yaml:"nozzle_offset,omitempty"`
}

// BlendConfig holds overhang smoothing settings.
type BlendConfig struct {
	Strategy      string  `yaml:"strategy"`
	Tolerance     float64 `yaml:"tolerance"`
	MergeFraction float64 `yaml:"merge_fraction"`
}

// MaterialProfile is one printable material.
type MaterialProfile struct {
	Name               string  `yaml:"name"`
	NozzleTemp         float64 `yaml:"nozzle_temp"`
	CupTemp            float64 `yaml:"cup_temp"`
	ShrinkFactor       float64 `yaml:"shrink_factor"`
	OutputFactor       float64 `yaml:"output_factor"`
	Feedrate           float64 `yaml:"feedrate"`
	GramsPerRevolution float64 `yaml:"grams_per_revolution"`
	Density            float64 `yaml:"density"`
	SecondsPerLayer    float64 `yaml:"seconds_per_layer"`
}

// MaterialConfig selects the active profile.
type MaterialConfig struct {
	Active   string            `yaml:"active"`
	Profiles []MaterialProfile `yaml:"profiles"`
}

// PlacementConfig positions the mesh before slicing.
type PlacementConfig struct {
	AutoAlign bool       `yaml:"auto_align"`
	Rotate    [3]float64 `yaml:"rotate"` // degrees about x, y, z
	Translate [3]float64 `yaml:"translate"`
}

// TrimConfig holds the trim line in placed mesh coordinates.
type TrimConfig struct {
	Points [][3]float64 `yaml:"points,omitempty"`
}

// TransitionConfig toggles the cup transition layer.
type TransitionConfig struct {
	Enabled  bool `yaml:"enabled"`
	Segments int  `yaml:"segments"`
}

// PrinterConfig holds transport settings.
type PrinterConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	SerialPort string `yaml:"serial_port"`
	Baud       int    `yaml:"baud"`
}

// StoreConfig locates the settings database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AgentConfig holds local HTTP agent settings.
type AgentConfig struct {
	Listen         string `yaml:"listen"`
	MaxConnections int    `yaml:"max_connections"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// DefaultProfile returns the built-in cp1 material.
func DefaultProfile() MaterialProfile {
	return MaterialProfile{
		Name:               "cp1",
		NozzleTemp:         200,
		CupTemp:            190,
		ShrinkFactor:       2.6,
		OutputFactor:       1,
		Feedrate:           0,
		GramsPerRevolution: 0.2,
		Density:            0.0009,
		SecondsPerLayer:    12,
	}
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Slicing: SlicingConfig{
			LayerHeight:          1,
			Segments:             128,
			UpAxis:               "y",
			MinCoverage:          0.95,
			MaxConsecutiveMisses: 3,
			SpiralRamp:           false,
			PerLevelFeedrate:     true,
			ProgressBuffer:       16,
		},
		Machine: MachineConfig{
			NozzleSize:             5,
			Cup:                    "84x38",
			GrooveRadius:           39,
			LockDepth:              13,
			StartingCupLayerHeight: 2,
			LineWidthAdjustment:    1.2,
			EPerRevolution:         31.3,
		},
		Blend: BlendConfig{
			Strategy:      "clamp",
			Tolerance:     0.5,
			MergeFraction: 0.925,
		},
		Material: MaterialConfig{
			Active:   "cp1",
			Profiles: []MaterialProfile{DefaultProfile()},
		},
		Placement: PlacementConfig{
			AutoAlign: true,
		},
		Transition: TransitionConfig{
			Segments: 128,
		},
		Printer: PrinterConfig{
			Baud: 115200,
		},
		Store: StoreConfig{
			Path: "",
		},
		Agent: AgentConfig{
			Listen:         "127.0.0.1:8724",
			MaxConnections: 8,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
