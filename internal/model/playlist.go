package model

import (
	"strings"
	"time"
)

// MediaKind is assigned once when a snapshot is transformed, so the
// video/image decision is never re-derived from the file extension at
// scheduling time.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

var videoExtensions = map[string]struct{}{
	"mp4":  {},
	"webm": {},
	"ogg":  {},
	"mov":  {},
}

// KindForFileType classifies a file extension.
func KindForFileType(fileType string) MediaKind {
	if _, ok := videoExtensions[strings.ToLower(fileType)]; ok {
		return MediaKindVideo
	}
	return MediaKindImage
}

// MediaItem is one schedulable asset. URL is derived at transform time from
// the media base URL, never transmitted by the backend.
type MediaItem struct {
	ID       string    `json:"id"`
	FileType string    `json:"fileType"`
	Kind     MediaKind `json:"kind"`
	URL      string    `json:"url"`

	// StartAt/EndAt bound the display validity window, inclusive on both
	// ends. Items without a window are always valid.
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`

	// Duration is how long an image stays on the main pane, in seconds.
	// Videos time themselves.
	Duration *float64 `json:"duration,omitempty"`
	Position int      `json:"position,omitempty"`
}

// ValidAt reports whether the item may be shown at t. An item whose window
// ends before it starts never validates.
func (m MediaItem) ValidAt(t time.Time) bool {
	if m.StartAt == nil || m.EndAt == nil {
		return true
	}
	return !t.Before(*m.StartAt) && !t.After(*m.EndAt)
}

// DisplayDuration returns the on-screen time for an image item.
func (m MediaItem) DisplayDuration(fallback time.Duration) time.Duration {
	if m.Duration != nil && *m.Duration > 0 {
		return time.Duration(*m.Duration * float64(time.Second))
	}
	return fallback
}

// Campaign groups items into two day-part slots.
type Campaign struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	AM   []MediaItem `json:"am"`
	PM   []MediaItem `json:"pm"`
}

// PlaylistData is the full standby content set. It is replaced wholesale on
// every publish and never mutated in place.
type PlaylistData struct {
	Campaigns   []Campaign `json:"campaigns"`
	PlaceHolder *MediaItem `json:"place_holder,omitempty"`
}
