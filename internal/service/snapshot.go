package service

import (
	"context"

	"paralleldex/internal/media"
)

type SnapshotResponse struct {
	URL string `json:"url"`
}

// UploadSnapshot stores a photo taken on the result screen.
func (s *Service) UploadSnapshot(ctx context.Context, playerID string, data []byte, fileName string) (SnapshotResponse, error) {
	if s.uploader == nil || !s.uploader.Enabled() {
		return SnapshotResponse{}, media.ErrUploadUnavailable
	}
	if _, err := s.Player(playerID); err != nil {
		return SnapshotResponse{}, err
	}
	url, err := s.uploader.Upload(ctx, playerID, data, fileName)
	if err != nil {
		return SnapshotResponse{}, err
	}
	s.log.WithField("player_id", playerID).WithField("url", url).Info("snapshot uploaded")
	return SnapshotResponse{URL: url}, nil
}
