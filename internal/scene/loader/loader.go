package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Loader
// ============================================================

// Loader resolves a scene source: an http(s) URL or a path relative to root.
// URLs are refused unless their host was allowed with AllowHosts.
type Loader struct {
	root    string
	client  *http.Client
	hosts   map[string]bool
	anyHost bool
}

func New(root string, timeout time.Duration) *Loader {
	return &Loader{
		root:   root,
		client: &http.Client{Timeout: timeout},
	}
}

// AllowHosts permits fetching from the given hostnames. "*" allows any host.
func (l *Loader) AllowHosts(hosts ...string) *Loader {
	if l.hosts == nil {
		l.hosts = make(map[string]bool)
	}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch h {
		case "":
		case "*":
			l.anyHost = true
		default:
			l.hosts[h] = true
		}
	}
	return l
}

// Load fetches and parses a scene. Retrieval failures are *models.FetchError,
// decoding failures *models.ParseError.
func (l *Loader) Load(ctx context.Context, source string) (*models.Scene, error) {
	if isURL(source) {
		if err := l.checkHost(source); err != nil {
			return nil, err
		}
	}
	data, err := l.fetch(ctx, source)
	if err != nil {
		return nil, &models.FetchError{Source: source, Err: err}
	}
	return models.Parse(data)
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("empty source")
	}
	if isURL(source) {
		return l.fetchURL(ctx, source)
	}
	return l.readFile(source)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (l *Loader) checkHost(source string) error {
	u, err := url.Parse(source)
	if err != nil || u.Hostname() == "" {
		return &models.InvalidInputError{Field: "source", Reason: "malformed url"}
	}
	if l.anyHost || l.hosts[strings.ToLower(u.Hostname())] {
		return nil
	}
	return &models.InvalidInputError{Field: "source", Reason: fmt.Sprintf("remote host %s not allowed", u.Hostname())}
}

func (l *Loader) fetchURL(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func (l *Loader) readFile(name string) ([]byte, error) {
	if l.root == "" {
		return nil, fmt.Errorf("no scene directory configured")
	}

	clean := filepath.Clean("/" + name)
	path := filepath.Join(l.root, clean)
	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("source %q escapes scene directory", name)
	}

	return os.ReadFile(path)
}
