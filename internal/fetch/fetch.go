// Package fetch downloads report images into an on-disk cache.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/media/images"
	"github.com/bandreports/bandreports/internal/ratelimit"
)

const (
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes limits download size to prevent memory exhaustion.
	DefaultMaxBytes = 20 << 20
)

// Status is the outcome of a fetch.
type Status int

const (
	// Available means the image is on disk at Result.Path.
	Available Status = iota
	// Unavailable means the download failed; Result.Err holds the cause.
	Unavailable
	// Skipped means there was no reference to fetch.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result describes what a fetch produced. Failures are reported here, never
// returned as errors.
type Result struct {
	Ref    string
	Status Status
	Path   string
	Cached bool
	Size   int64

	// Populated when the stored file decodes as an image.
	Format   string
	Width    int
	Height   int
	BlurHash string

	Err error
}

// Available reports whether the image is on disk.
func (r Result) Available() bool { return r.Status == Available }

// Options configures a Fetcher.
type Options struct {
	Timeout           time.Duration
	MaxBytes          int64
	UserAgent         string
	RequestsPerSecond float64
}

// Fetcher downloads images sequentially. A reference whose file already exists
// is served from disk without touching the network.
type Fetcher struct {
	httpClient *http.Client
	storage    *images.Storage
	limiter    *ratelimit.HostLimiter
	opts       Options
	logger     *slog.Logger
}

// New creates a fetcher that stores files in storage.
func New(storage *images.Storage, opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		storage: storage,
		limiter: ratelimit.New(opts.RequestsPerSecond, 1),
		opts:    opts,
		logger:  logger,
	}
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.httpClient.CloseIdleConnections()
}

// FileName derives the cache file name for ref: the last element of the URL
// path, or image_<hash>.jpg when the path names no file.
func FileName(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		p := u.Path
		if p != "" && p[len(p)-1] != '/' {
			if base := path.Base(p); base != "." && base != "/" && base != ".." && !strings.Contains(base, `\`) {
				return base
			}
		}
	}
	sum := sha256.Sum256([]byte(ref))
	return "image_" + hex.EncodeToString(sum[:8]) + ".jpg"
}

// Fetch makes the image behind ref available on disk.
func (f *Fetcher) Fetch(ctx context.Context, ref string) Result {
	result := Result{Ref: ref}

	if ref == "" {
		result.Status = Skipped
		return result
	}

	name := FileName(ref)
	result.Path = f.storage.Path(name)

	if f.storage.Exists(name) {
		result.Status = Available
		result.Cached = true
		f.probe(&result, name)
		f.logger.Debug("image already cached", "url", ref, "path", result.Path)
		return result
	}

	data, err := f.download(ctx, ref)
	if err != nil {
		return f.unavailable(result, err)
	}

	if err := f.storage.Save(name, data); err != nil {
		return f.unavailable(result, fmt.Errorf("store: %w", err))
	}

	result.Status = Available
	result.Size = int64(len(data))
	f.probe(&result, name)

	f.logger.Info("downloaded image",
		"url", ref,
		"path", result.Path,
		"size", result.Size,
		"width", result.Width,
		"height", result.Height,
	)
	return result
}

// FetchAll fetches each distinct non-empty reference once, in order.
// After ctx is canceled the remaining references are reported unavailable.
func (f *Fetcher) FetchAll(ctx context.Context, refs []string) map[string]Result {
	results := make(map[string]Result, len(refs))
	for _, ref := range refs {
		if _, done := results[ref]; done {
			continue
		}
		if err := ctx.Err(); err != nil && ref != "" {
			results[ref] = Result{Ref: ref, Status: Unavailable, Err: err}
			continue
		}
		results[ref] = f.Fetch(ctx, ref)
	}
	return results
}

func (f *Fetcher) download(ctx context.Context, ref string) ([]byte, error) {
	if !f.limiter.Unlimited() && !f.limiter.Allow(ref) {
		f.logger.Debug("rate limited, waiting", "url", ref)
		if err := f.limiter.Wait(ctx, ref); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	downloadCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if int64(len(data)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", f.opts.MaxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return data, nil
}

func (f *Fetcher) unavailable(result Result, err error) Result {
	result.Status = Unavailable
	result.Path = ""
	result.Err = errors.Fetchf("fetch %s", result.Ref).WithCause(err)
	f.logger.Warn("image unavailable", "url", result.Ref, "error", err)
	return result
}

// probe fills in image details. A file that does not decode stays Available;
// the renderer decides whether it can use it.
func (f *Fetcher) probe(result *Result, name string) {
	data, err := f.storage.Get(name)
	if err != nil {
		f.logger.Warn("failed to read cached image", "path", result.Path, "error", err)
		return
	}
	result.Size = int64(len(data))

	info, err := images.Probe(data)
	if err != nil {
		f.logger.Warn("failed to inspect image", "path", result.Path, "error", err)
		return
	}
	result.Format = info.Format
	result.Width = info.Width
	result.Height = info.Height
	result.BlurHash = info.BlurHash
}
