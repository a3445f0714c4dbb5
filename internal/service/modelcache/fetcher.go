package modelcache

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"yolodemo/internal/logger"
)

// Fetcher copies the resource at rawURL into dest.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) (int64, error)
}

// progressStep is how often download progress is logged.
const progressStep = 10 * 1024 * 1024

var (
	confirmToken = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)
	formAction   = regexp.MustCompile(`<form[^>]+id="download-form"[^>]+action="([^"]+)"`)
	hiddenInput  = regexp.MustCompile(`<input[^>]+type="hidden"[^>]+name="([^"]+)"[^>]+value="([^"]*)"`)
)

// HTTPFetcher downloads over HTTP(S). Google Drive large-file warning pages
// are followed once using the confirmation they embed.
type HTTPFetcher struct {
	client *http.Client
	logger *logger.Logger
}

// NewHTTPFetcher creates a fetcher whose downloads are bounded by timeout.
func NewHTTPFetcher(timeout time.Duration, logger *logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch streams rawURL into dest and returns the number of bytes written.
// The caller owns dest; it is left behind even when the copy fails midway.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	if isHTML(resp) {
		page, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			return 0, fmt.Errorf("failed to read interstitial page: %w", err)
		}

		next, ok := confirmURL(rawURL, page)
		if !ok {
			return 0, fmt.Errorf("%s returned an HTML page instead of model weights", rawURL)
		}

		f.logger.Info("Following download confirmation for %s", rawURL)
		resp, err = f.get(ctx, next)
		if err != nil {
			return 0, err
		}
		if isHTML(resp) {
			resp.Body.Close()
			return 0, fmt.Errorf("%s still returned an HTML page after confirmation", rawURL)
		}
	}
	defer resp.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, &progressReader{
		reader: resp.Body,
		total:  resp.ContentLength,
		name:   dest,
		logger: f.logger,
	})
	if err != nil {
		return written, fmt.Errorf("download interrupted after %d bytes: %w", written, err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return written, fmt.Errorf("short download: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := out.Sync(); err != nil {
		return written, fmt.Errorf("failed to flush file: %w", err)
	}
	return written, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid download url %q: %w", rawURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}
	return resp, nil
}

func isHTML(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html")
}

// confirmURL extracts the follow-up download link from a Drive warning page.
func confirmURL(original string, page []byte) (string, bool) {
	if m := formAction.FindSubmatch(page); m != nil {
		action, err := url.Parse(html.UnescapeString(string(m[1])))
		if err != nil {
			return "", false
		}
		query := action.Query()
		for _, input := range hiddenInput.FindAllSubmatch(page, -1) {
			query.Set(string(input[1]), html.UnescapeString(string(input[2])))
		}
		action.RawQuery = query.Encode()
		return action.String(), true
	}

	if m := confirmToken.FindSubmatch(bytes.ReplaceAll(page, []byte("&amp;"), []byte("&"))); m != nil {
		u, err := url.Parse(original)
		if err != nil {
			return "", false
		}
		query := u.Query()
		query.Set("confirm", string(m[1]))
		u.RawQuery = query.Encode()
		return u.String(), true
	}

	return "", false
}

// progressReader logs every progressStep bytes read.
type progressReader struct {
	reader io.Reader
	total  int64
	read   int64
	next   int64
	name   string
	logger *logger.Logger
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	p.read += int64(n)

	if p.read >= p.next+progressStep {
		p.next = p.read - p.read%progressStep
		if p.total > 0 {
			p.logger.Info("Download progress %s: %d/%d MB (%.1f%%)", p.name, p.read>>20, p.total>>20, float64(p.read)/float64(p.total)*100)
		} else {
			p.logger.Info("Download progress %s: %d MB", p.name, p.read>>20)
		}
	}
	return n, err
}
