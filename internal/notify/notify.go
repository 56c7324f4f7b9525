// Package notify routes background push deliveries to the desktop notification
// surface and routes notification clicks back to an open page context.
package notify

import (
	"context"
	"encoding/json"
	"log"

	"family-radio/companion/internal/station/domain"
)

// TagNewTrack is the tag every track notification carries. Showing a new one
// replaces the previous notification instead of stacking.
const TagNewTrack = "new-track"

// DefaultURL is where a click lands when the payload carried no url.
const DefaultURL = "/#playing"

// Intent is the decoded push payload. Every field has a usable default, so a
// malformed or empty payload still produces a presentable notification.
type Intent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// ParseIntent decodes a push payload, falling back field by field: fallbackTitle
// for the title, empty body, DefaultURL for the url. It never fails.
func ParseIntent(payload []byte, fallbackTitle string) Intent {
	intent := Intent{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &intent); err != nil {
			log.Printf("notify: malformed push payload, using defaults: %v", err)
			intent = Intent{}
		}
	}
	if intent.Title == "" {
		intent.Title = fallbackTitle
	}
	if intent.URL == "" {
		intent.URL = DefaultURL
	}
	return intent
}

// Notification is what the display surface shows.
type Notification struct {
	Title    string
	Body     string
	Tag      string
	URL      string
	Renotify bool
}

// Display shows desktop notifications. Show with an already-visible tag replaces
// that notification in place.
type Display interface {
	Show(ctx context.Context, n Notification) error
	Close(ctx context.Context, tag string) error
}

// Client is one reachable page context.
type Client struct {
	ID         string
	ControlURL string
	Page       string
}

// NavigateMessage tells a page context where a notification click wants to go.
type NavigateMessage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Clients is the set of open page contexts the worker can reach.
type Clients interface {
	List(ctx context.Context) ([]Client, error)
	Message(ctx context.Context, c Client, msg NavigateMessage) error
	Focus(ctx context.Context, c Client) error
	// OpenWindow opens a fresh page context at url.
	OpenWindow(ctx context.Context, url string) error
	// Claim takes control of all page contexts immediately on activation.
	Claim(ctx context.Context) error
}

// NameSource supplies the cached station name for default notification titles.
type NameSource interface {
	CachedName(ctx context.Context) string
}

// Router owns the worker's event handling: pushes become notifications, clicks
// become navigation in exactly one page context.
type Router struct {
	display Display
	clients Clients
	names   NameSource
}

func NewRouter(display Display, clients Clients, names NameSource) *Router {
	return &Router{display: display, clients: clients, names: names}
}

// HandleActivate claims all open page contexts so the new worker version serves
// them without a reload.
func (r *Router) HandleActivate(ctx context.Context) error {
	return r.clients.Claim(ctx)
}

// HandlePush shows (or replaces) the track notification for one push delivery.
func (r *Router) HandlePush(ctx context.Context, payload []byte) error {
	intent := ParseIntent(payload, r.fallbackTitle(ctx))
	return r.display.Show(ctx, Notification{
		Title:    intent.Title,
		Body:     intent.Body,
		Tag:      TagNewTrack,
		URL:      intent.URL,
		Renotify: true,
	})
}

// HandleClick dismisses the notification and performs exactly one navigation:
// message-and-focus the first page context that answers, or open a new one when
// none does.
func (r *Router) HandleClick(ctx context.Context, url string) error {
	if url == "" {
		url = DefaultURL
	}
	if err := r.display.Close(ctx, TagNewTrack); err != nil {
		log.Printf("notify: close notification: %v", err)
	}

	clients, err := r.clients.List(ctx)
	if err != nil {
		log.Printf("notify: list page clients: %v", err)
	}
	for _, c := range clients {
		if err := r.clients.Message(ctx, c, NavigateMessage{Type: "navigate", URL: url}); err != nil {
			log.Printf("notify: client %s unreachable, skipping: %v", c.ID, err)
			continue
		}
		return r.clients.Focus(ctx, c)
	}
	return r.clients.OpenWindow(ctx, url)
}

func (r *Router) fallbackTitle(ctx context.Context) string {
	if r.names == nil {
		return domain.DefaultName
	}
	if name := r.names.CachedName(ctx); name != "" {
		return name
	}
	return domain.DefaultName
}
