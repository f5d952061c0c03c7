package config

import "flag"

// Flags are the command-line overrides shared by every binary.
type Flags struct {
	Config      *string
	Debug       *bool
	LayerHeight *float64
	Segments    *int
	Up          *string
	Profile     *string
	Store       *string
}

// RegisterFlags binds the shared overrides to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:      fs.String("config", "", "Path to config file"),
		Debug:       fs.Bool("debug", false, "Enable debug logging"),
		LayerHeight: fs.Float64("layer-height", 0, "Layer height in mm"),
		Segments:    fs.Int("segments", 0, "Rays per ring"),
		Up:          fs.String("up", "", "Vertical axis of the mesh (y or z)"),
		Profile:     fs.String("profile", "", "Material profile name"),
		Store:       fs.String("store", "", "Path to settings database"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.LayerHeight > 0 {
		cfg.Slicing.LayerHeight = *f.LayerHeight
	}
	if *f.Segments > 0 {
		cfg.Slicing.Segments = float64(*f.Segments)
	}
	if *f.Up != "" {
		cfg.Slicing.UpAxis = *f.Up
	}
	if *f.Profile != "" {
		cfg.Material.Active = *f.Profile
	}
	if *f.Store != "" {
		cfg.Store.Path = *f.Store
	}
}
