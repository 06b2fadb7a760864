// Package fetch downloads the update payload.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/adamancini/hotswap/internal/failure"
	"github.com/adamancini/hotswap/internal/progress"
)

const userAgent = "hotswap/%s"

// progressInterval throttles determinate progress events.
const progressInterval = 100 * time.Millisecond

// Options configures an Acquirer.
type Options struct {
	// Proxy is an http://, https:// or socks5:// URL. A bare host:port is
	// treated as an HTTP proxy. Empty means the environment's proxy settings.
	Proxy string
	// Version is reported in the User-Agent header.
	Version string
	// Timeout bounds the whole transfer. Zero means no limit.
	Timeout time.Duration
	// Progress receives transfer events. Nil discards them.
	Progress progress.Sink
}

// Result describes a finished download.
type Result struct {
	Path    string
	Bytes   int64
	Total   int64
	Elapsed time.Duration
}

// Acquirer streams a URL to a local file.
type Acquirer struct {
	client    *http.Client
	userAgent string
	sink      progress.Sink
	now       func() time.Time
}

// New builds an Acquirer. An unusable proxy is a ConfigurationError.
func New(opts Options) (*Acquirer, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		if err := configureProxy(transport, opts.Proxy); err != nil {
			return nil, failure.Wrap(failure.KindConfiguration, "proxy", err)
		}
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	return &Acquirer{
		client:    &http.Client{Transport: transport, Timeout: opts.Timeout},
		userAgent: fmt.Sprintf(userAgent, version),
		sink:      progress.OrDiscard(opts.Progress),
		now:       time.Now,
	}, nil
}

func configureProxy(t *http.Transport, raw string) error {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid proxy %q: missing host", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("invalid socks5 proxy %q: %w", raw, err)
		}
		t.Proxy = nil
		if cd, ok := d.(proxy.ContextDialer); ok {
			t.DialContext = cd.DialContext
		} else {
			t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return d.Dial(network, addr)
			}
		}
	default:
		return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return nil
}

// Acquire downloads rawURL to dest. Any existing file at dest is removed
// first. Every failure is a NetworkError except local file errors, which are
// FilesystemErrors. Nothing is retried.
func (a *Acquirer) Acquire(ctx context.Context, rawURL, dest string) (res Result, err error) {
	res.Path = dest
	log.Debugf("starting download from %s", rawURL)

	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return res, failure.Wrap(failure.KindFilesystem, "remove stale payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return res, failure.Wrap(failure.KindNetwork, "create request", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return res, failure.Wrap(failure.KindNetwork, "request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, failure.Errorf(failure.KindNetwork, "request", "unexpected HTTP status: %s", resp.Status)
	}
	res.Total = resp.ContentLength

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return res, failure.Wrap(failure.KindFilesystem, "create download dir", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return res, failure.Wrap(failure.KindFilesystem, "create payload file", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Warnf("error closing file %q: %v", dest, cerr)
			if err == nil {
				err = failure.Wrap(failure.KindFilesystem, "close payload file", cerr)
			}
		}
	}()

	start := a.now()
	counter := &countingReader{r: resp.Body, total: res.Total, start: start, now: a.now, sink: a.sink}
	counter.report(true)

	n, err := io.Copy(out, counter)
	res.Bytes = n
	res.Elapsed = a.now().Sub(start)
	if err != nil {
		if counter.readErr != nil {
			return res, failure.Wrap(failure.KindNetwork, "read response", err)
		}
		return res, failure.Wrap(failure.KindFilesystem, "write payload", err)
	}
	if res.Total > 0 && n != res.Total {
		return res, failure.Errorf(failure.KindNetwork, "read response", "short body: got %d of %d bytes", n, res.Total)
	}
	counter.report(true)

	log.Infof("downloaded %s (%s) to %s", rawURL, humanize.IBytes(uint64(n)), dest)
	return res, nil
}

// countingReader emits progress as bytes arrive.
type countingReader struct {
	r        io.Reader
	total    int64
	received int64
	start    time.Time
	last     time.Time
	now      func() time.Time
	sink     progress.Sink
	readErr  error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.received += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		c.readErr = err
	}
	c.report(false)
	return n, err
}

func (c *countingReader) report(force bool) {
	now := c.now()
	if !force && now.Sub(c.last) < progressInterval {
		return
	}
	c.last = now
	speed := Speed(c.received, now.Sub(c.start))

	if c.total <= 0 {
		c.sink.Emit(progress.Indeterminate(fmt.Sprintf("Downloaded %s  Speed %s",
			humanize.IBytes(uint64(c.received)), speed)))
		return
	}
	pct := progress.Ratio(c.received, c.total)
	c.sink.Emit(progress.Percentage(pct, fmt.Sprintf("Downloaded %s%%  Speed %s",
		progress.FormatPercent(pct), speed)))
}

// Speed formats bytes over elapsed as KB/s with two decimals.
func Speed(bytes int64, elapsed time.Duration) string {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return "0.00 KB/s"
	}
	return fmt.Sprintf("%.2f KB/s", float64(bytes)/1024/secs)
}

// TempPath returns a fresh path in the system temp directory whose name is a
// random UUID carrying the URL's file extension, so decoders that sniff by
// name still see ".zip" or ".7z".
func TempPath(rawURL string) string {
	return filepath.Join(os.TempDir(), uuid.NewString()+urlExt(rawURL))
}

// FileName returns the last path element of rawURL, ignoring query strings.
func FileName(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func urlExt(rawURL string) string {
	name := strings.ToLower(FileName(rawURL))
	for _, ext := range []string{".tar.gz", ".tar.zst"} {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return path.Ext(name)
}
