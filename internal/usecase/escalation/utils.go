package escalation

import (
	"context"
	"log/slog"
	"time"

	"labgate/internal/bootstrap/logging"
)

const timeLayout = time.RFC3339Nano

func (s *Service) nowString() string {
	return s.clock.Now().UTC().Format(timeLayout)
}

func parseStoredTime(raw string) (time.Time, error) {
	return time.Parse(timeLayout, raw)
}

func cacheStatusKey(inspectionID string) string {
	return "escalation_status:" + inspectionID
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		logging.Warn(ctx, "cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
