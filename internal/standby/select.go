package standby

import (
	"time"

	"github.com/nimbus-retail/kioskd/internal/model"
)

// Slot is the day-part a campaign list belongs to.
type Slot string

const (
	SlotAM Slot = "am"
	SlotPM Slot = "pm"
)

// DayPart selects the slot for a local wall-clock time: AM before noon.
func DayPart(t time.Time) Slot {
	if t.Hour() < 12 {
		return SlotAM
	}
	return SlotPM
}

// ValidItems concatenates every campaign's current-slot list in campaign
// order (no merge, no dedup) and keeps the items whose validity window
// contains now. Both window bounds are inclusive; windowless items always
// pass.
func ValidItems(pl model.PlaylistData, now time.Time) []model.MediaItem {
	slot := DayPart(now)
	var items []model.MediaItem
	for _, c := range pl.Campaigns {
		list := c.AM
		if slot == SlotPM {
			list = c.PM
		}
		for _, item := range list {
			if item.ValidAt(now) {
				items = append(items, item)
			}
		}
	}
	return items
}

// SplitPools partitions valid items into the video and image rotation pools.
func SplitPools(items []model.MediaItem) (videos, images []model.MediaItem) {
	for _, item := range items {
		if item.Kind == model.MediaKindVideo {
			videos = append(videos, item)
		} else {
			images = append(images, item)
		}
	}
	return videos, images
}

// View is the renderable selection for every pane. The rendering layer is
// purely reactive: it shows exactly this.
type View struct {
	Active      bool             `json:"active"`
	Main        *model.MediaItem `json:"main,omitempty"`
	SideTop     *model.MediaItem `json:"side_top,omitempty"`
	SideBottom  *model.MediaItem `json:"side_bottom,omitempty"`
	Placeholder bool             `json:"placeholder"`
}

// buildView derives the pane selection from the pools and counters. Indices
// grow monotonically and are reduced mod pool size only here, at read time.
func buildView(videos, images []model.MediaItem, placeholder *model.MediaItem, mainIndex, sideIndex int, active bool) View {
	view := View{Active: active}

	switch {
	case len(videos) > 0:
		view.Main = &videos[mainIndex%len(videos)]
	case len(images) > 0:
		view.Main = &images[mainIndex%len(images)]
	case placeholder != nil:
		view.Main = placeholder
		view.Placeholder = true
		return view
	default:
		return view
	}

	if len(images) > 0 {
		view.SideTop = &images[sideIndex%len(images)]
		view.SideBottom = &images[(sideIndex+1)%len(images)]
	}
	return view
}
