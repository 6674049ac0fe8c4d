package drive

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/service"
	"github.com/rs/zerolog/log"
)

// itemsPrefix marks the items master among the workbooks of a folder.
const itemsPrefix = "items"

// WorkbookFunc receives a new or changed stock workbook together with the
// newest items master of the folder, if any.
type WorkbookFunc func(ctx context.Context, stock service.Upload, items *service.Upload) error

// Watcher polls a Drive folder and hands every new or modified stock
// workbook to a callback once.
type Watcher struct {
	source   Source
	folderID string
	interval time.Duration
	handle   WorkbookFunc

	seen map[string]string
}

// NewWatcher creates a new Watcher.
func NewWatcher(source Source, folderID string, interval time.Duration, handle WorkbookFunc) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Watcher{
		source:   source,
		folderID: folderID,
		interval: interval,
		handle:   handle,
		seen:     map[string]string{},
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if n, err := w.Poll(ctx); err != nil {
			log.Error().Err(err).Str("folder", w.folderID).Msg("drive: poll failed")
		} else if n > 0 {
			log.Info().Int("workbooks", n).Str("folder", w.folderID).Msg("drive: processed new workbooks")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll lists the folder once and processes unseen workbooks, oldest first.
// A workbook whose callback fails is retried on the next poll unless the
// failure was a precondition error.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	files, err := w.source.ListFiles(ctx, w.folderID)
	if err != nil {
		return 0, err
	}

	var stock []*File
	var items *File
	for _, f := range files {
		if !f.IsWorkbook() {
			continue
		}
		if strings.HasPrefix(strings.ToLower(f.Name), itemsPrefix) {
			if items == nil || f.ModifiedTime > items.ModifiedTime {
				items = f
			}
			continue
		}
		if w.seen[f.ID] != f.ModifiedTime {
			stock = append(stock, f)
		}
	}
	if len(stock) == 0 {
		return 0, nil
	}
	sort.SliceStable(stock, func(i, j int) bool { return stock[i].ModifiedTime < stock[j].ModifiedTime })

	var master *service.Upload
	if items != nil {
		meta, data, err := w.source.Download(ctx, items.ID)
		if err != nil {
			return 0, err
		}
		master = &service.Upload{Name: meta.Name, Data: data}
	}

	processed := 0
	for _, f := range stock {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		meta, data, err := w.source.Download(ctx, f.ID)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("drive: download failed")
			continue
		}
		if err := w.handle(ctx, service.Upload{Name: meta.Name, Data: data}, master); err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("drive: workbook failed")
			// bad input stays bad until the file is modified
			if errors.Is(err, domain.ErrPrecondition) {
				w.seen[f.ID] = f.ModifiedTime
			}
			continue
		}
		w.seen[f.ID] = f.ModifiedTime
		processed++
	}
	return processed, nil
}
