package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/common"
)

// ErrNotSaved is returned in use-saved mode when no stored response exists for a URL.
var ErrNotSaved = errors.New("no saved response")

// Options configures a Retriever.
type Options struct {
	// SavedDir is where raw responses are written (Save) or read from (UseSaved).
	SavedDir string
	Save     bool
	UseSaved bool

	UserAgent string
	Backoff   BackoffConfig
}

// Retriever downloads JSON documents, optionally recording them to disk
// or replaying previously recorded ones instead of hitting the network.
type Retriever struct {
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	opts    Options
}

// DefaultBackoff is used when Options.Backoff is left empty.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// NewRetriever creates a Retriever sharing the given HTTP client.
func NewRetriever(client *http.Client, opts Options) (*Retriever, error) {
	if opts.Save && opts.UseSaved {
		return nil, fmt.Errorf("save and use-saved are mutually exclusive")
	}
	if (opts.Save || opts.UseSaved) && opts.SavedDir == "" {
		return nil, fmt.Errorf("saved data directory is required")
	}
	if opts.Backoff == (BackoffConfig{}) {
		opts.Backoff = DefaultBackoff
	}
	if opts.Save {
		if err := os.MkdirAll(opts.SavedDir, 0o755); err != nil {
			return nil, fmt.Errorf("create saved data dir: %w", err)
		}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "peacesecurity-api",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Retriever{
		httpCfg: HTTPClientConfig{
			Client:    client,
			UserAgent: opts.UserAgent,
			Backoff:   opts.Backoff,
		},
		circuit: cb,
		opts:    opts,
	}, nil
}

// DownloadJSON returns the raw body of the JSON document at rawURL.
func (r *Retriever) DownloadJSON(ctx context.Context, rawURL string) ([]byte, error) {
	path, err := savedPath(r.opts.SavedDir, rawURL)
	if err != nil {
		return nil, err
	}

	if r.opts.UseSaved {
		body, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w for %s (%s)", ErrNotSaved, rawURL, path)
			}
			return nil, err
		}
		log.Printf("DEBUG: using saved response %s for %s", path, rawURL)
		return body, nil
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, r.httpCfg, r.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	if r.opts.Save {
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return nil, fmt.Errorf("save %s: %w", rawURL, err)
		}
	}

	return body, nil
}

// savedPath maps a URL onto a stable file name inside dir.
func savedPath(dir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	name := strings.Trim(u.Path, "/")
	if u.RawQuery != "" {
		name += "-" + u.RawQuery
	}
	name = common.Slugify(strings.ReplaceAll(name, "/", "-"))
	if name == "" {
		name = common.Slugify(u.Host)
	}

	return filepath.Join(dir, name+".json"), nil
}
