// Package media warms a local asset cache so pane transitions never wait on
// the network. A failed preload is logged and swallowed: one bad asset must
// not hold up the rest of the batch or the playlist publish.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/model"
)

const preloadWorkers = 4

type Preloader struct {
	httpc *http.Client
	dir   string
}

func NewPreloader(dir string) *Preloader {
	return &Preloader{
		httpc: &http.Client{Timeout: 2 * time.Minute},
		dir:   dir,
	}
}

// CachePath returns where an item's asset lives on disk once warmed.
func (p *Preloader) CachePath(item model.MediaItem) string {
	return filepath.Join(p.dir, item.ID+"."+item.FileType)
}

// Warm downloads every referenced asset that is not already cached. It
// returns once all preloads have settled; individual failures never abort
// the batch.
func (p *Preloader) Warm(ctx context.Context, items []model.MediaItem) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", p.dir).Msg("failed to create media cache dir")
		return
	}

	sem := make(chan struct{}, preloadWorkers)
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(item model.MediaItem) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := p.fetch(ctx, item); err != nil {
				log.Warn().Err(err).Str("url", item.URL).Msg("failed to preload asset")
			}
		}(item)
	}
	wg.Wait()
}

func (p *Preloader) fetch(ctx context.Context, item model.MediaItem) error {
	dest := p.CachePath(item)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(p.dir, "preload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
