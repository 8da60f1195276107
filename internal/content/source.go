package content

import (
	"context"
	"fmt"

	"github.com/Nixie-Tech-LLC/stheno/internal/db"
	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// TreeSource assembles the renderable tree for a content reference.
type TreeSource interface {
	Load(ctx context.Context, ref model.ContentRef) (model.DesignTree, error)
}

// StoreSource assembles trees from the database. Playlists and scenes are
// normalized to a single full-canvas zone; layouts carry their authored
// zones through unchanged.
type StoreSource struct {
	store db.Store
}

func NewStoreSource(store db.Store) *StoreSource {
	return &StoreSource{store: store}
}

func (s *StoreSource) Load(_ context.Context, ref model.ContentRef) (model.DesignTree, error) {
	switch ref.Type {
	case model.ContentPlaylist:
		p, err := s.store.GetPlaylist(ref.ID)
		if err != nil {
			return model.DesignTree{}, fmt.Errorf("load playlist %d: %w", ref.ID, err)
		}
		return model.SingleZoneTree(ref, p.Items, p.Shuffle), nil
	case model.ContentLayout:
		l, err := s.store.GetLayout(ref.ID)
		if err != nil {
			return model.DesignTree{}, fmt.Errorf("load layout %d: %w", ref.ID, err)
		}
		return model.DesignTree{Ref: ref, Zones: l.Zones}, nil
	case model.ContentScene:
		sc, err := s.store.GetScene(ref.ID)
		if err != nil {
			return model.DesignTree{}, fmt.Errorf("load scene %d: %w", ref.ID, err)
		}
		return model.SingleZoneTree(ref, []model.PlayableItem{sc.Item}, false), nil
	default:
		return model.DesignTree{}, fmt.Errorf("content type %q cannot be mounted", ref.Type)
	}
}
