// exposes a Store interface so playback code and tests never touch the
// sqlx handle directly
package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

type Store interface {
	// screen functions
	GetScreenByDeviceUID(uid string) (*model.Screen, error)
	GetDeviceSettings(screenID int) (model.DeviceSettings, error)
	UpdateScreenClientInfo(screenID int, info string, width, height int) error
	TouchScreen(screenID int, seenAt time.Time) error

	// schedule functions
	ScheduleEntriesForScreen(screenID int) ([]model.ScheduleEntry, error)

	// content functions
	GetPlaylist(id int) (model.Playlist, error)
	GetLayout(id int) (model.Layout, error)
	GetScene(id int) (model.Scene, error)

	// preview functions
	GetPreviewShareByToken(token string) (*model.PreviewShare, error)
	ListCommentsForShare(shareID int) ([]model.Comment, error)
	CreateComment(shareID int, author, body string) (model.Comment, error)

	// telemetry functions
	InsertPlaybackEvents(events []model.PlaybackEvent) error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
// required so linter doesn't complain
var _ Store = (*pgStore)(nil)

func NewStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}
