package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/provelslice/internal/config"
)

// ErrProfileInUse is returned when deleting the active profile.
var ErrProfileInUse = errors.New("profile is active")

const profileColumns = `name, nozzle_temp, cup_temp, shrink_factor, output_factor, feedrate,
	grams_per_revolution, density, seconds_per_layer`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (config.MaterialProfile, error) {
	var p config.MaterialProfile
	err := row.Scan(&p.Name, &p.NozzleTemp, &p.CupTemp, &p.ShrinkFactor, &p.OutputFactor,
		&p.Feedrate, &p.GramsPerRevolution, &p.Density, &p.SecondsPerLayer)
	return p, err
}

// ListProfiles returns all material profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]config.MaterialProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM material_profiles ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []config.MaterialProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// GetProfile returns one profile by name.
func (s *Store) GetProfile(ctx context.Context, name string) (config.MaterialProfile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM material_profiles WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return config.MaterialProfile{}, fmt.Errorf("%w: %q", config.ErrUnknownProfile, name)
	}
	if err != nil {
		return config.MaterialProfile{}, fmt.Errorf("failed to get profile %q: %w", name, err)
	}
	return p, nil
}

// SaveProfile inserts p or updates the profile with the same name.
func (s *Store) SaveProfile(ctx context.Context, p config.MaterialProfile) error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO material_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			nozzle_temp = excluded.nozzle_temp,
			cup_temp = excluded.cup_temp,
			shrink_factor = excluded.shrink_factor,
			output_factor = excluded.output_factor,
			feedrate = excluded.feedrate,
			grams_per_revolution = excluded.grams_per_revolution,
			density = excluded.density,
			seconds_per_layer = excluded.seconds_per_layer,
			updated_at = strftime('%s', 'now')`,
		p.Name, p.NozzleTemp, p.CupTemp, p.ShrinkFactor, p.OutputFactor, p.Feedrate,
		p.GramsPerRevolution, p.Density, p.SecondsPerLayer)
	if err != nil {
		return fmt.Errorf("failed to save profile %q: %w", p.Name, err)
	}
	s.log.Debug("profile saved", zap.String("name", p.Name))
	return nil
}

// DeleteProfile removes a profile. The active profile cannot be deleted.
func (s *Store) DeleteProfile(ctx context.Context, name string) error {
	active, err := s.GetSetting(ctx, SettingActiveProfile)
	if err != nil {
		return err
	}
	if active == name {
		return fmt.Errorf("%w: %q", ErrProfileInUse, name)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM material_profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete profile %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", config.ErrUnknownProfile, name)
	}
	return nil
}

// ActiveProfile returns the profile named by the active_material_profile
// setting.
func (s *Store) ActiveProfile(ctx context.Context) (config.MaterialProfile, error) {
	name, err := s.GetSetting(ctx, SettingActiveProfile)
	if err != nil {
		return config.MaterialProfile{}, err
	}
	return s.GetProfile(ctx, name)
}

// SetActiveProfile selects an existing profile.
func (s *Store) SetActiveProfile(ctx context.Context, name string) error {
	if _, err := s.GetProfile(ctx, name); err != nil {
		return err
	}
	return s.SetSetting(ctx, SettingActiveProfile, name)
}
