// Package notify folds newly discovered messages into a single outward
// notification.
//
// At most one notification is live. A message of lower or equal priority
// only raises the counter of the live notification; a message of higher
// priority takes over its content. Each change withdraws the previous
// notification and shows a replacement. Once the surface reports the live
// notification as dismissed, the next message starts a new cycle.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/ampcare/internal/logging"
	"github.com/dmitrijs2005/ampcare/internal/metrics"
	"github.com/dmitrijs2005/ampcare/internal/models"
)

// DefaultTitle heads every message notification.
const DefaultTitle = "New Message"

// Handle identifies a notification shown by a Surface. The zero Handle
// means no notification.
type Handle uint64

type Notification struct {
	Title       string
	Body        string
	Icon        string
	PriorityKey string
}

// Surface is the outward notification backend.
type Surface interface {
	Notify(ctx context.Context, n Notification) (Handle, error)
	Withdraw(ctx context.Context, h Handle) error
}

type live struct {
	handle   Handle
	title    string
	summary  string
	icon     string
	priority models.Priority
	count    int
}

type Coalescer struct {
	surface Surface
	logger  logging.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	live *live
}

func NewCoalescer(surface Surface, logger logging.Logger, mt *metrics.Metrics) *Coalescer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coalescer{surface: surface, logger: logger, metrics: mt}
}

// Discovered folds m into the live notification and shows the result.
func (c *Coalescer) Discovered(ctx context.Context, m *models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.live
	if cur == nil {
		cur = &live{title: DefaultTitle, summary: m.ShortTitle(), icon: m.Priority.Icon(), priority: m.Priority}
		c.live = cur
	} else {
		c.withdraw(ctx, cur.handle)
		if m.Priority > cur.priority {
			cur.summary = m.ShortTitle()
			cur.icon = m.Priority.Icon()
			cur.priority = m.Priority
		}
		c.metrics.ObserveNotification(metrics.ActionCoalesced)
	}
	cur.count++
	cur.handle = 0

	n := cur.notification()
	h, err := c.surface.Notify(ctx, n)
	if err != nil {
		c.logger.Warn(ctx, "notification failed", "message_id", m.ID, "error", err)
		if cur.count == 1 {
			// nothing of this cycle was shown, so no dismissal can end it
			c.live = nil
		}
		return fmt.Errorf("notify: %w", err)
	}
	cur.handle = h
	c.metrics.ObserveNotification(metrics.ActionShown)
	c.logger.Debug(ctx, "notification shown", "message_id", m.ID, "count", cur.count, "priority", cur.priority.String())
	return nil
}

// Dismissed resets the cycle when h is the live notification. Handles of
// replaced notifications are ignored.
func (c *Coalescer) Dismissed(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == nil || h == 0 || c.live.handle != h {
		return
	}
	c.live = nil
	c.metrics.ObserveNotification(metrics.ActionDismissed)
}

// Dismiss withdraws the live notification and resets the cycle.
func (c *Coalescer) Dismiss(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == nil {
		return
	}
	c.withdraw(ctx, c.live.handle)
	c.live = nil
	c.metrics.ObserveNotification(metrics.ActionDismissed)
}

// Live returns the notification currently shown and the number of messages
// folded into it.
func (c *Coalescer) Live() (Notification, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == nil {
		return Notification{}, 0, false
	}
	return c.live.notification(), c.live.count, true
}

func (c *Coalescer) withdraw(ctx context.Context, h Handle) {
	if h == 0 {
		return
	}
	if err := c.surface.Withdraw(ctx, h); err != nil {
		c.logger.Warn(ctx, "withdrawing notification failed", "handle", uint64(h), "error", err)
		return
	}
	c.metrics.ObserveNotification(metrics.ActionWithdrawn)
}

func (l *live) notification() Notification {
	body := l.summary
	if others := l.count - 1; others > 0 {
		noun := "messages"
		if others == 1 {
			noun = "message"
		}
		body = fmt.Sprintf("%s\n... and %d other %s", l.summary, others, noun)
	}
	return Notification{
		Title:       l.title,
		Body:        body,
		Icon:        l.icon,
		PriorityKey: l.priority.Key(),
	}
}
