package notify

import (
	"context"
	"sync/atomic"

	"github.com/dmitrijs2005/ampcare/internal/logging"
)

// LogSurface shows notifications as log entries. It suits headless and
// terminal use where no desktop notification service exists.
type LogSurface struct {
	logger logging.Logger
	next   atomic.Uint64
}

func NewLogSurface(logger logging.Logger) *LogSurface {
	return &LogSurface{logger: logger}
}

func (s *LogSurface) Notify(ctx context.Context, n Notification) (Handle, error) {
	h := Handle(s.next.Add(1))
	s.logger.Info(ctx, n.Title,
		"body", n.Body, "icon", n.Icon, "priority", n.PriorityKey, "handle", uint64(h))
	return h, nil
}

func (s *LogSurface) Withdraw(ctx context.Context, h Handle) error {
	s.logger.Debug(ctx, "notification withdrawn", "handle", uint64(h))
	return nil
}
