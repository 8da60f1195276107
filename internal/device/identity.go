package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Identity is the box's stable self-description, provisioned onto disk
// when the device is imaged. The UID is what pairs it to a screen row.
// Timezone and broker are field overrides: when set they win over the
// server-side device settings.
type Identity struct {
	DeviceUID    string `json:"device_uid"`
	Name         string `json:"name,omitempty"`
	TimezoneName string `json:"timezone,omitempty"`
	BrokerURL    string `json:"broker_url,omitempty"`
}

// Load reads the identity file. A missing file mints a fresh UID and
// writes it back, so first boot self-provisions.
func Load(path string) (Identity, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		id := Identity{DeviceUID: uuid.NewString()}
		if err := Save(path, id); err != nil {
			return Identity{}, err
		}
		log.Info().Str("device_uid", id.DeviceUID).Msg("minted new device identity")
		return id, nil
	}
	if err != nil {
		return Identity{}, err
	}

	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identity{}, fmt.Errorf("parse identity file: %w", err)
	}
	if id.DeviceUID == "" {
		return Identity{}, errors.New("identity file has no device_uid")
	}
	return id, nil
}

func Save(path string, id Identity) error {
	raw, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// Watcher re-reads the identity file when field tooling rewrites it, so a
// re-provisioned box picks up its new pairing without a restart.
type Watcher struct {
	watcher *fsnotify.Watcher
}

// Watch observes the identity file's directory (editors and provisioning
// tools replace the file, which breaks a direct file watch) and calls
// onChange with each successfully parsed identity. Changes are debounced.
func Watch(ctx context.Context, path string, onChange func(Identity)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch identity directory: %w", err)
	}

	w := &Watcher{watcher: watcher}
	go w.loop(ctx, path, onChange)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, path string, onChange func(Identity)) {
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				id, err := Load(path)
				if err != nil {
					log.Error().Err(err).Str("path", path).Msg("identity reload failed, keeping previous identity")
					return
				}
				log.Info().Str("device_uid", id.DeviceUID).Msg("device identity reloaded")
				onChange(id)
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("identity watcher error")
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *Watcher) Stop() {
	w.watcher.Close()
}
