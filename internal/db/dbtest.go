package db

import (
	"errors"
	"os"
	"time"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

var TestStore Store

// InitTestDB connects to the database named by TEST_DATABASE_URL and runs
// migrations, for tests that exercise real SQL.
func InitTestDB(migrationsPath string) error {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		return errors.New("TEST_DATABASE_URL environment variable is not set")
	}

	if err := Init(dbURL); err != nil {
		return err
	}

	if err := RunMigrations(migrationsPath); err != nil {
		return err
	}

	TestStore = NewStore(DB)
	return nil
}

// FakeStore is a function-field Store for unit tests. Unset fields return
// zero values so a test only wires what it exercises.
type FakeStore struct {
	GetScreenByDeviceUIDFn     func(uid string) (*model.Screen, error)
	GetDeviceSettingsFn        func(screenID int) (model.DeviceSettings, error)
	UpdateScreenClientInfoFn   func(screenID int, info string, width, height int) error
	TouchScreenFn              func(screenID int, seenAt time.Time) error
	ScheduleEntriesForScreenFn func(screenID int) ([]model.ScheduleEntry, error)
	GetPlaylistFn              func(id int) (model.Playlist, error)
	GetLayoutFn                func(id int) (model.Layout, error)
	GetSceneFn                 func(id int) (model.Scene, error)
	GetPreviewShareByTokenFn   func(token string) (*model.PreviewShare, error)
	ListCommentsForShareFn     func(shareID int) ([]model.Comment, error)
	CreateCommentFn            func(shareID int, author, body string) (model.Comment, error)
	InsertPlaybackEventsFn     func(events []model.PlaybackEvent) error
}

var _ Store = (*FakeStore)(nil)

func (f *FakeStore) GetScreenByDeviceUID(uid string) (*model.Screen, error) {
	if f.GetScreenByDeviceUIDFn == nil {
		return nil, errors.New("not wired")
	}
	return f.GetScreenByDeviceUIDFn(uid)
}

func (f *FakeStore) GetDeviceSettings(screenID int) (model.DeviceSettings, error) {
	if f.GetDeviceSettingsFn == nil {
		return model.DeviceSettings{ScreenID: screenID}, nil
	}
	return f.GetDeviceSettingsFn(screenID)
}

func (f *FakeStore) UpdateScreenClientInfo(screenID int, info string, width, height int) error {
	if f.UpdateScreenClientInfoFn == nil {
		return nil
	}
	return f.UpdateScreenClientInfoFn(screenID, info, width, height)
}

func (f *FakeStore) TouchScreen(screenID int, seenAt time.Time) error {
	if f.TouchScreenFn == nil {
		return nil
	}
	return f.TouchScreenFn(screenID, seenAt)
}

func (f *FakeStore) ScheduleEntriesForScreen(screenID int) ([]model.ScheduleEntry, error) {
	if f.ScheduleEntriesForScreenFn == nil {
		return nil, nil
	}
	return f.ScheduleEntriesForScreenFn(screenID)
}

func (f *FakeStore) GetPlaylist(id int) (model.Playlist, error) {
	if f.GetPlaylistFn == nil {
		return model.Playlist{}, errors.New("not wired")
	}
	return f.GetPlaylistFn(id)
}

func (f *FakeStore) GetLayout(id int) (model.Layout, error) {
	if f.GetLayoutFn == nil {
		return model.Layout{}, errors.New("not wired")
	}
	return f.GetLayoutFn(id)
}

func (f *FakeStore) GetScene(id int) (model.Scene, error) {
	if f.GetSceneFn == nil {
		return model.Scene{}, errors.New("not wired")
	}
	return f.GetSceneFn(id)
}

func (f *FakeStore) GetPreviewShareByToken(token string) (*model.PreviewShare, error) {
	if f.GetPreviewShareByTokenFn == nil {
		return nil, errors.New("not wired")
	}
	return f.GetPreviewShareByTokenFn(token)
}

func (f *FakeStore) ListCommentsForShare(shareID int) ([]model.Comment, error) {
	if f.ListCommentsForShareFn == nil {
		return nil, nil
	}
	return f.ListCommentsForShareFn(shareID)
}

func (f *FakeStore) CreateComment(shareID int, author, body string) (model.Comment, error) {
	if f.CreateCommentFn == nil {
		return model.Comment{}, errors.New("not wired")
	}
	return f.CreateCommentFn(shareID, author, body)
}

func (f *FakeStore) InsertPlaybackEvents(events []model.PlaybackEvent) error {
	if f.InsertPlaybackEventsFn == nil {
		return nil
	}
	return f.InsertPlaybackEventsFn(events)
}
