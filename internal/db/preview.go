package db

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

type previewShareRow struct {
	ID         int        `db:"id"`
	Token      string     `db:"token"`
	TargetType string     `db:"target_type"`
	TargetID   int        `db:"target_id"`
	Revoked    bool       `db:"revoked"`
	ExpiresAt  *time.Time `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (s *pgStore) GetPreviewShareByToken(token string) (*model.PreviewShare, error) {
	var r previewShareRow
	const q = `
	SELECT id, token, target_type, target_id, revoked, expires_at, created_at
	FROM preview_shares
	WHERE token = $1;`
	if err := s.db.Get(&r, q, token); err != nil {
		log.Error().Err(err).Msg("[db] GetPreviewShareByToken: failed to get share")
		return nil, err
	}
	return &model.PreviewShare{
		ID:        r.ID,
		Token:     r.Token,
		Target:    model.ContentRef{Type: model.ContentType(r.TargetType), ID: r.TargetID},
		Revoked:   r.Revoked,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}, nil
}

func (s *pgStore) ListCommentsForShare(shareID int) ([]model.Comment, error) {
	var out []model.Comment
	const q = `
	SELECT id, share_id, author, body, created_at
	FROM preview_comments
	WHERE share_id = $1
	ORDER BY id;`
	if err := s.db.Select(&out, q, shareID); err != nil {
		log.Error().Err(err).Int("share_id", shareID).Msg("[db] ListCommentsForShare: failed to select comments")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) CreateComment(shareID int, author, body string) (model.Comment, error) {
	var c model.Comment
	const q = `
	INSERT INTO preview_comments (share_id, author, body, created_at)
	VALUES ($1, $2, $3, now())
	RETURNING id, share_id, author, body, created_at;`
	if err := s.db.Get(&c, q, shareID, author, body); err != nil {
		log.Error().Err(err).Int("share_id", shareID).Msg("[db] CreateComment: failed to insert comment")
		return model.Comment{}, err
	}
	return c, nil
}
