package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Setting names.
const (
	SettingIPAddress              = "ip_address"
	SettingLayerHeight            = "layer_height"
	SettingNozzleSize             = "nozzle_size"
	SettingCupSize                = "cup_size"
	SettingActiveProfile          = "active_material_profile"
	SettingLockDepth              = "lock_depth"
	SettingCircularSegments       = "circular_segments"
	SettingTranslateX             = "translate_x"
	SettingTranslateY             = "translate_y"
	SettingTranslateZ             = "translate_z"
	SettingRotateX                = "rotate_x"
	SettingRotateY                = "rotate_y"
	SettingRotateZ                = "rotate_z"
	SettingStartingCupLayerHeight = "starting_cup_layer_height"
	SettingLineWidthAdjustment    = "line_width_adjustment"
	SettingEPerRevolution         = "e_per_revolution"
	SettingTestCylinderHeight     = "test_cylinder_height"
	SettingTestCylinderDiameter   = "test_cylinder_inner_diameter"
)

// ErrNotFound is returned when a setting or profile does not exist.
var ErrNotFound = errors.New("not found")

type keyValue struct {
	name  string
	value string
}

func defaultSettings() []keyValue {
	return []keyValue{
		{SettingIPAddress, ""},
		{SettingLayerHeight, "1"},
		{SettingNozzleSize, "5"},
		{SettingCupSize, "84x38"},
		{SettingActiveProfile, "cp1"},
		{SettingLockDepth, "13"},
		{SettingCircularSegments, "128"},
		{SettingTranslateX, "0"},
		{SettingTranslateY, "0"},
		{SettingTranslateZ, "0"},
		{SettingRotateX, "0"},
		{SettingRotateY, "0"},
		{SettingRotateZ, "0"},
		{SettingStartingCupLayerHeight, "2"},
		{SettingLineWidthAdjustment, "1.2"},
		{SettingEPerRevolution, "31.3"},
		{SettingTestCylinderHeight, "50"},
		{SettingTestCylinderDiameter, "70"},
	}
}

// GetSetting returns the stored value for name.
func (s *Store) GetSetting(ctx context.Context, name string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %q: %w", name, err)
	}
	return v, nil
}

// GetFloat returns a setting parsed as a float.
func (s *Store) GetFloat(ctx context.Context, name string) (float64, error) {
	v, err := s.GetSetting(ctx, name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %q: %w", name, err)
	}
	return f, nil
}

// SetSetting inserts or replaces a setting.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO app_settings (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = strftime('%s', 'now')`,
		name, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %q: %w", name, err)
	}
	return nil
}

// SetFloat stores a float setting in its shortest form.
func (s *Store) SetFloat(ctx context.Context, name string, v float64) error {
	return s.SetSetting(ctx, name, strconv.FormatFloat(v, 'f', -1, 64))
}

// Settings returns every stored setting.
func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM app_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}
