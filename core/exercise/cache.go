package exercise

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core/cache"
)

const pageCachePrefix = "exercise.page"

// fetchFailedContent replaces the exercise content when the service cannot
// be reached. Never stored.
const fetchFailedContent = `<div class="alert alert-danger">Connecting to the exercise service failed!</div>`

// pageEntry is the cached form of an exercise page. Entries are stored
// without TTL; freshness is tracked inside via Expires so a stale entry can
// still feed a conditional refetch with its LastModified marker.
type pageEntry struct {
	Head         string `json:"head"`
	Content      string `json:"content"`
	LastModified string `json:"last_modified"`
	Expires      int64  `json:"expires"`
}

func pageKey(exerciseID int, language string) string {
	return cache.Key(pageCachePrefix, []string{strconv.Itoa(exerciseID)}, language)
}

// cachedLoad serves exercise content from the shared cache, fetching from
// the service when the entry is missing or expired. A failed fetch yields a
// fallback page, marked dirty so it is never cached, and notifies the
// course's technical contacts.
func (svc *Service) cachedLoad(ctx context.Context, ex *Exercise, language, loadURL string) (Page, error) {
	loadFailed := false

	fresh := func(data []byte) bool {
		var entry pageEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return false
		}
		return entry.Expires > 0 && svc.now().Unix() <= entry.Expires
	}

	gen := func(ctx context.Context, prev []byte) ([]byte, bool, error) {
		var prevEntry *pageEntry
		var lastModified string
		if prev != nil {
			var entry pageEntry
			if err := json.Unmarshal(prev, &entry); err == nil {
				prevEntry = &entry
				lastModified = entry.LastModified
			}
		}

		page, err := svc.loader.LoadPage(ctx, loadURL, lastModified)
		if err != nil {
			if !IsFetchError(err) {
				return nil, false, err
			}
			loadFailed = true
			svc.log.Error("exercise service fetch failed", "exercise", ex.ID, "url", loadURL, "err", err)
			svc.reportServiceError(ctx, ex, err)
			data, merr := json.Marshal(pageEntry{Content: fetchFailedContent})
			return data, true, errors.Wrap(merr, "encoding page entry")
		}

		entry := pageEntry{
			Head:         page.Head,
			Content:      page.Content,
			LastModified: page.LastModified,
		}
		if !page.IsLoaded && prevEntry != nil {
			// not modified; keep the stored content, refresh its lease
			entry.Head = prevEntry.Head
			entry.Content = prevEntry.Content
			entry.LastModified = prevEntry.LastModified
		}
		if !page.Expires.IsZero() {
			entry.Expires = page.Expires.Unix()
		}
		data, merr := json.Marshal(entry)
		return data, false, errors.Wrap(merr, "encoding page entry")
	}

	data, err := cache.GetOrGenerate(ctx, svc.store, pageKey(ex.ID, language), cache.NoTTL, fresh, gen, svc.log)
	if err != nil {
		return Page{}, err
	}
	var entry pageEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Page{}, errors.Wrap(err, "decoding page entry")
	}
	return Page{
		ExerciseID:   ex.ID,
		Head:         entry.Head,
		Content:      entry.Content,
		IsLoaded:     !loadFailed,
		LastModified: entry.LastModified,
		Expires:      time.Unix(entry.Expires, 0),
	}, nil
}

// InvalidatePage drops the cached content of the exercise in every
// configured language. The parent's entries go too: its page may embed the
// exercise.
func (svc *Service) InvalidatePage(ctx context.Context, ex *Exercise) {
	for _, lang := range svc.cfg.Languages {
		cache.Invalidate(ctx, svc.store, pageKey(ex.ID, lang), svc.log)
	}
	if ex.ParentID.Valid {
		for _, lang := range svc.cfg.Languages {
			cache.Invalidate(ctx, svc.store, pageKey(ex.ParentID.Int, lang), svc.log)
		}
	}
}
