package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

func (s *pgStore) GetPlaylist(id int) (model.Playlist, error) {
	var p model.Playlist
	const q = `
	SELECT id, name, shuffle, created_at, updated_at
	FROM playlists
	WHERE id = $1;`
	if err := s.db.Get(&p, q, id); err != nil {
		log.Error().Err(err).Int("playlist_id", id).Msg("[db] GetPlaylist: failed to get playlist")
		return model.Playlist{}, err
	}

	items, err := s.listPlaylistItems(id)
	if err != nil {
		return model.Playlist{}, err
	}
	p.Items = items
	return p, nil
}

func (s *pgStore) listPlaylistItems(playlistID int) ([]model.PlayableItem, error) {
	var items []model.PlayableItem
	const q = `
	SELECT id, kind, name, source, duration, app_config, created_at
	FROM playlist_items
	WHERE playlist_id = $1
	ORDER BY position;`
	if err := s.db.Select(&items, q, playlistID); err != nil {
		log.Error().Err(err).Int("playlist_id", playlistID).Msg("[db] listPlaylistItems: failed to select items")
		return nil, err
	}
	return items, nil
}

// layoutZoneRow is the flat zone shape; frame and content reference are
// reassembled before playback code sees them.
type layoutZoneRow struct {
	ZoneKey     string  `db:"zone_key"`
	XPct        float64 `db:"x_pct"`
	YPct        float64 `db:"y_pct"`
	WPct        float64 `db:"w_pct"`
	HPct        float64 `db:"h_pct"`
	ZIndex      int     `db:"z_index"`
	ContentType *string `db:"content_type"`
	ContentID   *int    `db:"content_id"`
	AutoPlay    bool    `db:"auto_play"`
	Shuffle     bool    `db:"shuffle"`
}

// GetLayout loads a layout and resolves every zone's assigned content into
// its item list. A zone with no assignment mounts empty rather than failing
// the whole layout.
func (s *pgStore) GetLayout(id int) (model.Layout, error) {
	var l model.Layout
	const q = `
	SELECT id, name, created_at, updated_at
	FROM layouts
	WHERE id = $1;`
	if err := s.db.Get(&l, q, id); err != nil {
		log.Error().Err(err).Int("layout_id", id).Msg("[db] GetLayout: failed to get layout")
		return model.Layout{}, err
	}

	var rows []layoutZoneRow
	const zq = `
	SELECT zone_key, x_pct, y_pct, w_pct, h_pct, z_index,
	       content_type, content_id, auto_play, shuffle
	FROM layout_zones
	WHERE layout_id = $1
	ORDER BY z_index, zone_key;`
	if err := s.db.Select(&rows, zq, id); err != nil {
		log.Error().Err(err).Int("layout_id", id).Msg("[db] GetLayout: failed to select zones")
		return model.Layout{}, err
	}

	l.Zones = make([]model.Zone, 0, len(rows))
	for _, r := range rows {
		z := model.Zone{
			ID:       r.ZoneKey,
			Frame:    model.Frame{X: r.XPct, Y: r.YPct, W: r.WPct, H: r.HPct},
			Z:        r.ZIndex,
			AutoPlay: r.AutoPlay,
			Shuffle:  r.Shuffle,
		}
		if r.ContentType != nil && r.ContentID != nil {
			z.Content = model.ContentRef{Type: model.ContentType(*r.ContentType), ID: *r.ContentID}
			items, err := s.zoneItems(z.Content)
			if err != nil {
				return model.Layout{}, err
			}
			z.Items = items
		}
		l.Zones = append(l.Zones, z)
	}
	return l, nil
}

// zoneItems resolves a zone's content assignment to the ordered item list
// it plays.
func (s *pgStore) zoneItems(ref model.ContentRef) ([]model.PlayableItem, error) {
	switch ref.Type {
	case model.ContentPlaylist:
		return s.listPlaylistItems(ref.ID)
	case model.ContentScene:
		sc, err := s.GetScene(ref.ID)
		if err != nil {
			return nil, err
		}
		return []model.PlayableItem{sc.Item}, nil
	default:
		return nil, fmt.Errorf("zone content %s cannot be played", ref)
	}
}

func (s *pgStore) GetScene(id int) (model.Scene, error) {
	type sceneRow struct {
		ID        int             `db:"id"`
		Name      string          `db:"name"`
		Kind      string          `db:"kind"`
		Source    string          `db:"source"`
		Duration  int             `db:"duration"`
		AppConfig json.RawMessage `db:"app_config"`
		CreatedAt time.Time       `db:"created_at"`
		UpdatedAt time.Time       `db:"updated_at"`
	}

	var r sceneRow
	const q = `
	SELECT id, name, kind, source, duration, app_config, created_at, updated_at
	FROM scenes
	WHERE id = $1;`
	if err := s.db.Get(&r, q, id); err != nil {
		log.Error().Err(err).Int("scene_id", id).Msg("[db] GetScene: failed to get scene")
		return model.Scene{}, err
	}
	return model.Scene{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Item: model.PlayableItem{
			ID:        r.ID,
			Kind:      model.MediaKind(r.Kind),
			Name:      r.Name,
			Source:    r.Source,
			Duration:  r.Duration,
			AppConfig: r.AppConfig,
			CreatedAt: r.CreatedAt,
		},
	}, nil
}
