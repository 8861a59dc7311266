// Package loader fetches raw production datasets from local files or remote URLs.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/retry"
	"github.com/canopy-network/hydrodash/pkg/utils"
)

var (
	// ErrEmptySource is returned when no file path or URL was given.
	ErrEmptySource = errors.New("empty dataset source")
	// ErrTooLarge is returned when a dataset exceeds the configured size limit.
	ErrTooLarge = errors.New("dataset exceeds size limit")
	// ErrOutsideRoot is returned for file sources resolving outside the configured root.
	ErrOutsideRoot = errors.New("dataset file outside of allowed root")
)

// StatusError is returned when a remote source answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot http GET %s: %s", e.URL, e.Status)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Config configures a Loader.
type Config struct {
	// Timeout bounds a whole Fetch, retries included. Zero means no timeout.
	Timeout time.Duration
	// MaxBytes is the largest dataset accepted. Zero means no limit.
	MaxBytes int64
	// Root restricts file sources to this directory when set.
	Root  string
	Retry retry.Config
}

// Fetcher returns the raw text of a dataset source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (string, error)
}

// Loader fetches datasets over HTTP or from disk.
type Loader struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New returns a Loader. A nil client uses a plain http.Client.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Loader {
	if client == nil {
		client = &http.Client{}
	}
	return &Loader{cfg: cfg, client: client, logger: logger}
}

// Fetch returns the text behind source: an http(s) URL or a file path.
func (l *Loader) Fetch(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", ErrEmptySource
	}

	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		text string
		err  error
	)
	if utils.IsRemote(source) {
		text, err = l.fetchURL(ctx, source)
	} else {
		text, err = l.fetchFile(source)
	}
	if err != nil {
		return "", err
	}

	l.logger.Debug("Dataset fetched",
		zap.String("source", source),
		zap.Int("bytes", len(text)),
		zap.Duration("took", time.Since(start)))
	return text, nil
}

func (l *Loader) fetchURL(ctx context.Context, url string) (string, error) {
	var text string
	err := retry.WithBackoff(ctx, l.cfg.Retry, l.logger, "fetch "+url, func() error {
		var err error
		text, err = l.get(ctx, url)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// get performs a single GET. Errors that retrying cannot fix are marked permanent.
func (l *Loader) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("build request for %s: %w", url, err))
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", retry.Permanent(err)
		}
		return "", err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	l.logger.Debug("Dataset response",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.String("status", resp.Status))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
		if statusErr.Temporary() {
			return "", statusErr
		}
		return "", retry.Permanent(statusErr)
	}

	text, err := readLimited(resp.Body, l.cfg.MaxBytes)
	if errors.Is(err, ErrTooLarge) {
		return "", retry.Permanent(err)
	}
	return text, err
}

func (l *Loader) fetchFile(path string) (string, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return "", fmt.Errorf("open dataset file %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return readLimited(f, l.cfg.MaxBytes)
}

// resolve maps path into the configured root. Relative paths are taken relative to it.
func (l *Loader) resolve(path string) (string, error) {
	if l.cfg.Root == "" {
		return path, nil
	}
	root, err := filepath.Abs(l.cfg.Root)
	if err != nil {
		return "", fmt.Errorf("resolve dataset root %q: %w", l.cfg.Root, err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return path, nil
}

func readLimited(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		raw, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read dataset: %w", err)
		}
		return string(raw), nil
	}

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read dataset: %w", err)
	}
	if int64(len(raw)) > limit {
		return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return string(raw), nil
}
