// Package playlist turns raw snapshot payloads into canonical PlaylistData:
// fetch, normalize, preload, compare, publish. A cycle is always run to
// completion; it is triggered from event handlers with no caller left to
// observe a failure, so errors are logged and the previous snapshot stays
// in place.
package playlist

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/backend"
	"github.com/nimbus-retail/kioskd/internal/deepequal"
	"github.com/nimbus-retail/kioskd/internal/media"
	"github.com/nimbus-retail/kioskd/internal/model"
)

const (
	snapshotPath    = "playlist"
	defaultFileType = "jpg"
)

// wire shapes of the snapshot endpoint
type rawItem struct {
	ID       string   `json:"id"`
	FileType string   `json:"fileType"`
	StartAt  string   `json:"start_at"`
	EndAt    string   `json:"end_at"`
	Duration *float64 `json:"duration"`
	Position *int     `json:"position"`
}

type rawCampaign struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	AM   []rawItem `json:"am"`
	PM   []rawItem `json:"pm"`
}

type rawSnapshot struct {
	Campaigns   []rawCampaign `json:"campaigns"`
	PlaceHolder *struct {
		ID       string `json:"id"`
		FileType string `json:"fileType"`
	} `json:"place_holder"`
}

// Publisher receives each structurally new snapshot.
type Publisher func(model.PlaylistData)

type Fetcher struct {
	client    *backend.Client
	preloader *media.Preloader
	mediaBase string
	publish   Publisher

	mu   sync.Mutex
	last *model.PlaylistData
}

func NewFetcher(client *backend.Client, preloader *media.Preloader, mediaBase string, publish Publisher) *Fetcher {
	if !strings.HasSuffix(mediaBase, "/") {
		mediaBase += "/"
	}
	return &Fetcher{
		client:    client,
		preloader: preloader,
		mediaBase: mediaBase,
		publish:   publish,
	}
}

// Refresh runs one fetch-transform-preload-publish cycle. Concurrent
// triggers serialize here, so notifications arriving mid-fetch collapse
// into the next full cycle.
func (f *Fetcher) Refresh(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var raw rawSnapshot
	if err := f.client.GetJSON(ctx, snapshotPath, &raw); err != nil {
		log.Error().Err(err).Msg("playlist fetch failed, keeping previous snapshot")
		return
	}

	data := f.transform(raw)
	f.preloader.Warm(ctx, collectItems(data))

	if f.last != nil && deepequal.Equal(*f.last, data) {
		log.Debug().Msg("playlist unchanged, publish suppressed")
		return
	}
	f.last = &data
	log.Info().Int("campaigns", len(data.Campaigns)).Msg("playlist updated")
	f.publish(data)
}

func (f *Fetcher) transform(raw rawSnapshot) model.PlaylistData {
	data := model.PlaylistData{Campaigns: make([]model.Campaign, 0, len(raw.Campaigns))}
	for _, rc := range raw.Campaigns {
		data.Campaigns = append(data.Campaigns, model.Campaign{
			ID:   rc.ID,
			Name: rc.Name,
			AM:   f.transformSlot(rc.AM),
			PM:   f.transformSlot(rc.PM),
		})
	}
	if raw.PlaceHolder != nil {
		item := f.transformItem(rawItem{ID: raw.PlaceHolder.ID, FileType: raw.PlaceHolder.FileType})
		data.PlaceHolder = &item
	}
	return data
}

func (f *Fetcher) transformSlot(items []rawItem) []model.MediaItem {
	out := make([]model.MediaItem, 0, len(items))
	for _, ri := range items {
		out = append(out, f.transformItem(ri))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (f *Fetcher) transformItem(ri rawItem) model.MediaItem {
	fileType := strings.ToLower(ri.FileType)
	if fileType == "" {
		fileType = defaultFileType
	}
	item := model.MediaItem{
		ID:       ri.ID,
		FileType: fileType,
		Kind:     model.KindForFileType(fileType),
		URL:      f.mediaBase + ri.ID + "." + fileType,
		Duration: ri.Duration,
	}
	if ri.Position != nil {
		item.Position = *ri.Position
	}
	item.StartAt, item.EndAt = parseWindow(ri.StartAt, ri.EndAt)
	return item
}

// parseWindow maps absent bounds to "always valid" and an unparsable window
// to one that can never validate (end before start).
func parseWindow(startAt, endAt string) (*time.Time, *time.Time) {
	if startAt == "" || endAt == "" {
		return nil, nil
	}
	start, serr := time.Parse(time.RFC3339, startAt)
	end, eerr := time.Parse(time.RFC3339, endAt)
	if serr != nil || eerr != nil {
		log.Warn().Str("start_at", startAt).Str("end_at", endAt).Msg("unparsable validity window")
		never := time.Unix(1, 0)
		before := time.Unix(0, 0)
		return &never, &before
	}
	return &start, &end
}

func collectItems(data model.PlaylistData) []model.MediaItem {
	var items []model.MediaItem
	for _, c := range data.Campaigns {
		items = append(items, c.AM...)
		items = append(items, c.PM...)
	}
	if data.PlaceHolder != nil {
		items = append(items, *data.PlaceHolder)
	}
	return items
}
