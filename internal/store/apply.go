package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Faultbox/provelslice/internal/config"
)

// Apply overlays stored settings and profiles onto cfg. Settings missing
// from the database leave cfg untouched.
func (s *Store) Apply(ctx context.Context, cfg *config.Config) error {
	settings, err := s.Settings(ctx)
	if err != nil {
		return err
	}

	floats := map[string]*float64{
		SettingLayerHeight:            &cfg.Slicing.LayerHeight,
		SettingCircularSegments:       &cfg.Slicing.Segments,
		SettingNozzleSize:             &cfg.Machine.NozzleSize,
		SettingLockDepth:              &cfg.Machine.LockDepth,
		SettingStartingCupLayerHeight: &cfg.Machine.StartingCupLayerHeight,
		SettingLineWidthAdjustment:    &cfg.Machine.LineWidthAdjustment,
		SettingEPerRevolution:         &cfg.Machine.EPerRevolution,
		SettingTranslateX:             &cfg.Placement.Translate[0],
		SettingTranslateY:             &cfg.Placement.Translate[1],
		SettingTranslateZ:             &cfg.Placement.Translate[2],
		SettingRotateX:                &cfg.Placement.Rotate[0],
		SettingRotateY:                &cfg.Placement.Rotate[1],
		SettingRotateZ:                &cfg.Placement.Rotate[2],
	}
	for name, dst := range floats {
		v, ok := settings[name]
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("setting %q: %w", name, err)
		}
		*dst = f
	}

	if v := settings[SettingCupSize]; v != "" {
		cfg.Machine.Cup = v
	}
	if v := settings[SettingIPAddress]; v != "" {
		cfg.Printer.Address = v
	}
	if v := settings[SettingActiveProfile]; v != "" {
		cfg.Material.Active = v
	}

	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		cfg.SetProfile(p)
	}
	return nil
}
