// Package pkgindex implements the external package resolver: it locates
// installed R packages on disk, fetches or reads their pkgdown.yml topic
// index, and caches the result both in memory and on disk so a batch never
// re-fetches the same (package, version) twice. Concurrent lookups of the
// same package collapse behind a singleflight.Group.
package pkgindex

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/rdocs/rd2qmd/internal/metrics"
	"github.com/rdocs/rd2qmd/internal/retry"
)

// Index is one package's resolved topic -> relative href map plus its
// absolute base URL.
type Index struct {
	Package string
	Version string
	BaseURL string
	Topics  map[string]string // topic -> relative href
}

// href returns the absolute URL for topic, or ok == false if unindexed.
func (idx *Index) href(topic string) (string, bool) {
	if idx == nil {
		return "", false
	}
	rel, ok := idx.Topics[topic]
	if !ok {
		return "", false
	}
	base := strings.TrimSuffix(idx.BaseURL, "/")
	rel = strings.TrimPrefix(rel, "/")
	return base + "/" + rel, true
}

// memEntry is what the Resolver keeps in memory per package name: either a
// resolved Index, or a negative result recorded with the time it was
// recorded. The housekeeper's sweep does not read that time; it expires the
// on-disk negative entries by file modification time.
type memEntry struct {
	index     *Index
	negative  bool
	notBefore time.Time
}

// Resolver implements lower.ExternalResolver against a set of R library
// paths and a disk-backed cache directory.
type Resolver struct {
	libPaths    []string
	cacheDir    string
	client      *http.Client
	metrics     metrics.Recorder
	retryPolicy retry.Policy

	group singleflight.Group

	mu  sync.RWMutex
	mem map[string]memEntry

	watchMu sync.Mutex
	watcher *fsWatcher
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPTimeout overrides the default 30s HTTPS fetch timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.client.Timeout = d }
}

// WithMetrics injects a metrics.Recorder; resolver failures increment
// rd2qmd_resolver_failures_total{package,reason}.
func WithMetrics(m metrics.Recorder) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithRetryPolicy overrides the backoff policy used for HTTPS pkgdown
// fetches. The default is retry.DefaultPolicy().
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Resolver) { r.retryPolicy = p }
}

// New constructs a Resolver. libPaths are searched in order for a directory
// named after the package containing a DESCRIPTION file; cacheDir holds the
// on-disk JSON cache.
func New(libPaths []string, cacheDir string, opts ...Option) *Resolver {
	r := &Resolver{
		libPaths:    libPaths,
		cacheDir:    cacheDir,
		client:      &http.Client{Timeout: 30 * time.Second},
		metrics:     metrics.NoopRecorder{},
		retryPolicy: retry.DefaultPolicy(),
		mem:         make(map[string]memEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the absolute URL for pkg's topic, or ok == false if the
// package or topic could not be resolved. It implements lower.ExternalResolver.
func (r *Resolver) Resolve(pkg, topic string) (string, bool) {
	entry := r.lookup(pkg)
	if entry.negative {
		r.metrics.IncResolverFailure(pkg, "no_pkgdown_site")
		return "", false
	}
	url, ok := entry.index.href(topic)
	if !ok {
		r.metrics.IncResolverFailure(pkg, "topic_not_found")
		return "", false
	}
	r.metrics.IncResolverHit("external_resolver")
	return url, true
}

func (r *Resolver) lookup(pkg string) memEntry {
	r.mu.RLock()
	if e, ok := r.mem[pkg]; ok {
		r.mu.RUnlock()
		return e
	}
	r.mu.RUnlock()

	v, _, _ := r.group.Do(pkg, func() (any, error) {
		// Re-check under the group: another goroutine may have populated
		// the cache between our RUnlock above and acquiring the group key.
		r.mu.RLock()
		if e, ok := r.mem[pkg]; ok {
			r.mu.RUnlock()
			return e, nil
		}
		r.mu.RUnlock()

		entry := r.resolveUncached(pkg)
		r.mu.Lock()
		r.mem[pkg] = entry
		r.metrics.ObserveCacheSize(len(r.mem))
		r.mu.Unlock()
		return entry, nil
	})
	return v.(memEntry)
}

func (r *Resolver) resolveUncached(pkg string) memEntry {
	dir := r.findPackageDir(pkg)
	if dir == "" {
		r.metrics.IncResolverFailure(pkg, "not_installed")
		return memEntry{negative: true, notBefore: nowFunc()}
	}

	desc := readDescription(dir)
	version := desc.Version

	if cached, ok := r.readDiskCache(pkg, version); ok {
		return cached
	}

	idx, ok := r.fetchPkgdown(dir, desc, pkg, version)
	entry := memEntry{notBefore: nowFunc()}
	if ok {
		entry.index = idx
	} else {
		entry.negative = true
		r.metrics.IncResolverFailure(pkg, "no_pkgdown_site")
	}
	r.writeDiskCache(pkg, version, entry)
	return entry
}

func (r *Resolver) findPackageDir(pkg string) string {
	for _, lib := range r.libPaths {
		dir := filepath.Join(lib, pkg)
		desc := filepath.Join(dir, "DESCRIPTION")
		if st, err := os.Stat(desc); err == nil && !st.IsDir() {
			return dir
		}
	}
	return ""
}

func readDescription(pkgDir string) description {
	data, err := os.ReadFile(filepath.Join(pkgDir, "DESCRIPTION"))
	if err != nil {
		return description{}
	}
	return parseDescription(data)
}

// fetchPkgdown tries local pkgdown.yml first, then doc/pkgdown.yml, then a
// remote fetch from the package's declared URL.
func (r *Resolver) fetchPkgdown(pkgDir string, desc description, pkg, version string) (*Index, bool) {
	for _, rel := range []string{"pkgdown.yml", filepath.Join("doc", "pkgdown.yml")} {
		data, err := os.ReadFile(filepath.Join(pkgDir, rel))
		if err == nil {
			if idx, ok := parsePkgdownYAML(data, pkg, version); ok {
				return idx, true
			}
		}
	}

	base := firstHTTPSURL(desc.URLs)
	if base == "" {
		return nil, false
	}
	if data, err := r.httpGet(strings.TrimSuffix(base, "/") + "/pkgdown.yml"); err == nil {
		if idx, ok := parsePkgdownYAML(data, pkg, version); ok {
			return idx, true
		}
	}

	// Last resort for a site that publishes rendered pages but never shipped
	// (or lost) its pkgdown.yml: scrape the reference index page's <a> tags.
	if topics, ok := r.scrapeReferenceIndex(base); ok {
		return &Index{Package: pkg, Version: version, BaseURL: base, Topics: topics}, true
	}
	return nil, false
}

// httpGet fetches url, retrying transient failures (connection errors and
// non-2xx statuses) per r.retryPolicy before giving up.
func (r *Resolver) httpGet(url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retryPolicy.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(r.retryPolicy.Delay(attempt))
		}
		data, err := r.httpGetOnce(url)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (r *Resolver) httpGetOnce(url string) ([]byte, error) {
	resp, err := r.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &httpStatusError{url: url, status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

type httpStatusError struct {
	url    string
	status int
}

func (e *httpStatusError) Error() string {
	return "pkgindex: " + e.url + ": unexpected status " + http.StatusText(e.status)
}

// pkgdownTopicEntry mirrors the shapes pkgdown.yml's `topics:` list takes in
// the wild: a single `name`/`topic` key, or a `topics` list, paired with an
// `href`.
type pkgdownTopicEntry struct {
	Name   string   `yaml:"name"`
	Topic  string   `yaml:"topic"`
	Topics []string `yaml:"topics"`
	Href   string   `yaml:"href"`
}

type pkgdownYAML struct {
	URL    string              `yaml:"url"`
	Topics []pkgdownTopicEntry `yaml:"topics"`
}

func parsePkgdownYAML(data []byte, pkg, version string) (*Index, bool) {
	var doc pkgdownYAML
	if err := yaml.Unmarshal(data, &doc); err != nil || doc.URL == "" {
		return nil, false
	}
	idx := &Index{Package: pkg, Version: version, BaseURL: doc.URL, Topics: map[string]string{}}
	for _, entry := range doc.Topics {
		if entry.Href == "" {
			continue
		}
		if entry.Name != "" {
			idx.Topics[entry.Name] = entry.Href
		}
		if entry.Topic != "" {
			idx.Topics[entry.Topic] = entry.Href
		}
		for _, t := range entry.Topics {
			idx.Topics[t] = entry.Href
		}
	}
	return idx, true
}

// diskCacheFile is the on-disk JSON shape: a negative result is the same
// shape with Topics == nil.
type diskCacheFile struct {
	BaseURL string            `json:"base_url"`
	Topics  map[string]string `json:"topics"`
}

func (r *Resolver) cachePath(pkg, version string) string {
	if r.cacheDir == "" {
		return ""
	}
	return filepath.Join(r.cacheDir, pkg+"-"+version+".json")
}

func (r *Resolver) readDiskCache(pkg, version string) (memEntry, bool) {
	path := r.cachePath(pkg, version)
	if path == "" {
		return memEntry{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return memEntry{}, false
	}
	var f diskCacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return memEntry{}, false
	}
	if f.Topics == nil {
		return memEntry{negative: true, notBefore: nowFunc()}, true
	}
	return memEntry{index: &Index{Package: pkg, Version: version, BaseURL: f.BaseURL, Topics: f.Topics}}, true
}

func (r *Resolver) writeDiskCache(pkg, version string, entry memEntry) {
	path := r.cachePath(pkg, version)
	if path == "" {
		return
	}
	var f diskCacheFile
	if entry.negative {
		f = diskCacheFile{Topics: nil}
	} else {
		f = diskCacheFile{BaseURL: entry.index.BaseURL, Topics: entry.index.Topics}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}

// nowFunc is a seam for tests; production code always uses time.Now.
var nowFunc = time.Now
