// Package domain holds the station types shared by the nav bar, mini player, and caches.
package domain

import "time"

// DefaultName is shown before the first successful status fetch of a fresh origin.
const DefaultName = "Radio"

// NowPlaying is the track metadata part of the status response.
type NowPlaying struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Status is the body of GET /api/status.
type Status struct {
	StationName     string      `json:"station_name"`
	NowPlaying      *NowPlaying `json:"now_playing,omitempty"`
	PublicStreamURL string      `json:"public_stream_url,omitempty"`
}

// Text renders the now-playing line for the mini player, or "" when nothing is known.
func (n *NowPlaying) Text() string {
	switch {
	case n == nil:
		return ""
	case n.Artist == "":
		return n.Title
	case n.Title == "":
		return n.Artist
	default:
		return n.Title + " — " + n.Artist
	}
}

// Identity is the origin-scoped cached station identity.
type Identity struct {
	Origin    string    `db:"origin"`
	Name      string    `db:"name"`
	StreamURL string    `db:"stream_url"`
	UpdatedAt time.Time `db:"updated_at"`
}
