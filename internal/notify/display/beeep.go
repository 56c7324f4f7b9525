// Package display shows desktop notifications through the system notification
// server.
package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"family-radio/companion/internal/notify"
)

// Desktop is the beeep-backed notification surface. The system notification
// server has no tag concept, so replacement is tracked here: a Show with a
// visible tag stands in for the previous notification, and Close just forgets it.
type Desktop struct {
	AppIcon string

	mu      sync.Mutex
	visible map[string]notify.Notification
}

func New(appIcon string) *Desktop {
	return &Desktop{AppIcon: appIcon, visible: make(map[string]notify.Notification)}
}

func (d *Desktop) Show(ctx context.Context, n notify.Notification) error {
	if err := beeep.Notify(n.Title, n.Body, d.AppIcon); err != nil {
		return fmt.Errorf("display: notify: %w", err)
	}
	d.mu.Lock()
	d.visible[n.Tag] = n
	d.mu.Unlock()
	return nil
}

func (d *Desktop) Close(ctx context.Context, tag string) error {
	d.mu.Lock()
	delete(d.visible, tag)
	d.mu.Unlock()
	return nil
}

// Visible returns the notification currently held under tag, if any.
func (d *Desktop) Visible(tag string) (notify.Notification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.visible[tag]
	return n, ok
}
