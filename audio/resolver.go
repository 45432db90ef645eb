package audio

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
)

// QueryPreview is appended to the URL handed to suppliers for free-tier
// jobs. The asset itself is stored whole: the media CDN in front of the
// bucket is expected to honor the parameter, and the local media route
// ignores it. Stored and cached URLs are compared without it.
const QueryPreview = "preview_seconds"

// Request describes the job being resolved.
type Request struct {
	JobID        string
	SourceURL    string
	SourceType   jobs.SourceType
	HighAccuracy bool
	Tier         jobs.Tier
}

// Result is a resolved, supplier-reachable audio location.
type Result struct {
	ProcessedURL string
	Title        string
	DurationSec  float64
	IdentityKey  string
	Reused       bool
}

// Lookup finds completed jobs by source identity. *jobs.Store satisfies it.
type Lookup interface {
	FindReusable(ctx context.Context, identityKey string) (*jobs.Job, error)
}

// Resolver implements the resolution order described in the package doc.
type Resolver struct {
	cfg    Config
	lookup Lookup
	cache  *ReuseCache
	source Source
	store  storage.Storage
	log    *logger.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config, lookup Lookup, cache *ReuseCache, source Source, store storage.Storage, log *logger.Logger) *Resolver {
	cfg.ApplyDefaults()
	return &Resolver{cfg: cfg, lookup: lookup, cache: cache, source: source, store: store, log: log.WithComponent("audio")}
}

// Resolve produces the processed URL of req.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.SourceURL) == "" {
		return Result{}, apperrors.ManualUploadRequired(req.JobID, fmt.Errorf("empty source url"))
	}

	if r.isProcessed(req.SourceURL) {
		return Result{ProcessedURL: r.clip(unclipped(req.SourceURL), req.Tier)}, nil
	}

	videoID := ExternalVideoID(req.SourceURL)
	key := IdentityKey(videoID, req.HighAccuracy)

	for _, c := range reuseCandidates(videoID, req.HighAccuracy) {
		entry, ok, err := r.reusable(ctx, c.key)
		if err != nil {
			r.log.Warn("Reuse lookup failed", logger.Fields(logger.FieldJobID, req.JobID, "key", c.key, logger.FieldError, err.Error()))
			break
		}
		if !ok {
			continue
		}
		r.log.Info("Reusing processed audio", logger.Fields(logger.FieldJobID, req.JobID, "key", c.key))
		res := Result{
			ProcessedURL: r.clip(entry.ProcessedURL, req.Tier),
			Title:        entry.Title,
			IdentityKey:  key,
			Reused:       true,
		}
		if !c.urlOnly {
			res.DurationSec = entry.DurationSec
		}
		return res, nil
	}

	res, err := r.download(ctx, req, key)
	if err != nil {
		r.log.Error("Audio resolution failed", logger.Fields(logger.FieldJobID, req.JobID, logger.FieldError, err.Error()))
		return Result{}, apperrors.ManualUploadRequired(req.JobID, err)
	}
	res.ProcessedURL = r.clip(res.ProcessedURL, req.Tier)
	return res, nil
}

func (r *Resolver) reusable(ctx context.Context, key string) (CacheEntry, bool, error) {
	if r.cache != nil {
		if entry, ok := r.cache.Get(ctx, key); ok {
			entry.ProcessedURL = unclipped(entry.ProcessedURL)
			return entry, true, nil
		}
	}
	job, err := r.lookup.FindReusable(ctx, key)
	if err != nil || job == nil {
		return CacheEntry{}, false, err
	}
	dur := job.OriginalDurationSec
	if dur <= 0 {
		dur = float64(job.DurationSec)
	}
	entry := CacheEntry{ProcessedURL: unclipped(job.ProcessedURL), Title: job.Title, DurationSec: dur}
	if r.cache != nil {
		r.cache.Set(ctx, key, entry)
	}
	return entry, true, nil
}

func (r *Resolver) download(ctx context.Context, req Request, key string) (Result, error) {
	if r.source == nil || r.store == nil {
		return Result{}, fmt.Errorf("no download path configured")
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DownloadTimeout)
	defer cancel()

	media, err := r.source.Fetch(ctx, req.SourceURL)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = media.Body.Close() }()

	objPath := objectKey(r.cfg.KeyPrefix, key, req.SourceURL, media.ContentType)
	if err := r.store.Put(ctx, storage.Object{Key: objPath, Body: media.Body, ContentType: media.ContentType}); err != nil {
		return Result{}, fmt.Errorf("store audio: %w", err)
	}
	r.log.Info("Audio stored", logger.Fields(logger.FieldJobID, req.JobID, "path", objPath))
	return Result{ProcessedURL: r.store.URL(objPath), Title: media.Title, IdentityKey: key}, nil
}

func (r *Resolver) isProcessed(raw string) bool {
	for _, prefix := range r.cfg.CachedPrefixes {
		if prefix != "" && strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}

// clip limits free-tier audio to the preview length.
func (r *Resolver) clip(raw string, tier jobs.Tier) string {
	if tier != jobs.TierFree || r.cfg.PreviewSeconds <= 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(QueryPreview, strconv.Itoa(r.cfg.PreviewSeconds))
	u.RawQuery = q.Encode()
	return u.String()
}

type candidate struct {
	key     string
	urlOnly bool
}

// reuseCandidates lists identity keys in lookup order. A high-accuracy
// request may fall back to the standard asset. A standard request may take
// the URL of a high-accuracy asset but not its resolved duration, so the
// job is metered from its own transcript.
func reuseCandidates(videoID string, highAccuracy bool) []candidate {
	own := IdentityKey(videoID, highAccuracy)
	other := IdentityKey(videoID, !highAccuracy)
	if highAccuracy {
		return []candidate{{key: own}, {key: other}}
	}
	return []candidate{{key: own}, {key: other, urlOnly: true}}
}

// unclipped drops the preview parameter so a stored URL points at the
// whole asset.
func unclipped(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.Query().Has(QueryPreview) {
		return raw
	}
	q := u.Query()
	q.Del(QueryPreview)
	u.RawQuery = q.Encode()
	return u.String()
}
