package messaging

import "github.com/parley-chat/parley/internal/metrics"

// CheckContent validates message content against the configured length
// limit. It is pure and runs before any state mutation on every path that
// persists content.
func (s *Service) CheckContent(content string) error {
	if content == "" {
		metrics.ValidationFailures.WithLabelValues("empty").Inc()
		return ErrContentEmpty
	}
	if len([]rune(content)) > s.maxLength {
		metrics.ValidationFailures.WithLabelValues("too_long").Inc()
		return ErrContentTooLong
	}
	return nil
}
