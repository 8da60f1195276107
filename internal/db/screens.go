package db

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

func (s *pgStore) GetScreenByDeviceUID(uid string) (*model.Screen, error) {
	var sc model.Screen
	const q = `
	SELECT id, device_id, client_information, client_width, client_height,
	       name, location, timezone, paired, group_id, created_at, updated_at
	FROM screens
	WHERE device_id = $1;`
	if err := s.db.Get(&sc, q, uid); err != nil {
		log.Error().Err(err).Str("device_uid", uid).Msg("[db] GetScreenByDeviceUID: failed to get screen")
		return nil, err
	}
	return &sc, nil
}

// deviceSettingsRow flattens the settings join; filler and theme are
// reassembled into the model snapshot.
type deviceSettingsRow struct {
	ScreenID   int     `db:"screen_id"`
	Timezone   string  `db:"timezone"`
	FillerType *string `db:"filler_type"`
	FillerID   *int    `db:"filler_id"`
	Background string  `db:"background"`
	Accent     string  `db:"accent"`
	LogoURL    string  `db:"logo_url"`
}

// GetDeviceSettings assembles the per-screen configuration snapshot. A
// screen without a settings row still resolves: defaults come from the
// screens table and the theme falls back to plain black.
func (s *pgStore) GetDeviceSettings(screenID int) (model.DeviceSettings, error) {
	var r deviceSettingsRow
	const q = `
	SELECT s.id AS screen_id,
	       s.timezone,
	       d.filler_type,
	       d.filler_id,
	       COALESCE(d.theme_background, '#000000') AS background,
	       COALESCE(d.theme_accent, '#ffffff')     AS accent,
	       COALESCE(d.theme_logo_url, '')          AS logo_url
	FROM screens s
	LEFT JOIN device_settings d ON d.screen_id = s.id
	WHERE s.id = $1;`
	if err := s.db.Get(&r, q, screenID); err != nil {
		log.Error().Err(err).Int("screen_id", screenID).Msg("[db] GetDeviceSettings: failed to get settings")
		return model.DeviceSettings{}, err
	}

	out := model.DeviceSettings{
		ScreenID:     r.ScreenID,
		TimezoneName: r.Timezone,
		Theme: model.Theme{
			Background: r.Background,
			Accent:     r.Accent,
			LogoURL:    r.LogoURL,
		},
	}
	if r.FillerType != nil && r.FillerID != nil {
		out.FillerRef = &model.ContentRef{Type: model.ContentType(*r.FillerType), ID: *r.FillerID}
	}
	return out, nil
}

func (s *pgStore) UpdateScreenClientInfo(screenID int, info string, width, height int) error {
	_, err := s.db.Exec(`
	UPDATE screens
	SET client_information = $2,
	    client_width       = $3,
	    client_height      = $4,
	    updated_at         = now()
	WHERE id = $1;`, screenID, info, width, height)
	if err != nil {
		log.Error().Err(err).Int("screen_id", screenID).Msg("[db] UpdateScreenClientInfo: failed to update screen")
	}
	return err
}

// TouchScreen records a health heartbeat.
func (s *pgStore) TouchScreen(screenID int, seenAt time.Time) error {
	_, err := s.db.Exec(`
	UPDATE screens
	SET last_seen_at = $2
	WHERE id = $1;`, screenID, seenAt)
	if err != nil {
		log.Error().Err(err).Int("screen_id", screenID).Msg("[db] TouchScreen: failed to update last seen")
	}
	return err
}
