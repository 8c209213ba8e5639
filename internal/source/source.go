// Package source acquires the input video for a job: a local file, a
// YouTube video fetched through yt-dlp, or a direct or page-embedded URL.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// ErrInvalidURL reports a reference that is neither a local file nor an
// http(s) URL.
var ErrInvalidURL = errors.New("invalid URL")

// maxPageSize bounds how much of an HTML page is read while looking for a video
const maxPageSize = 4 << 20

// Options configures the fetcher
type Options struct {
	YTDLPPath string // empty = look up "yt-dlp" in PATH when needed
	WorkDir   string // downloads land in per-fetch directories below it
	Timeout   time.Duration

	// RemoteOnly rejects local file paths; set when refs come from
	// untrusted callers.
	RemoteOnly bool
	// YouTubeOnly rejects URLs on any other host
	YouTubeOnly bool
}

// Video is a fetched input. Cleanup removes anything the fetch created.
type Video struct {
	Path    string
	Cleanup func()
}

// Fetcher resolves a video reference to a local file
type Fetcher struct {
	logger zerolog.Logger
	client *http.Client
	ytdlp  string
	work   string

	remoteOnly  bool
	youtubeOnly bool
}

// NewFetcher creates a fetcher. A nil client gets one with opts.Timeout.
func NewFetcher(logger zerolog.Logger, client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	ytdlp := opts.YTDLPPath
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	return &Fetcher{
		logger: logger.With().Str("component", "source").Logger(),
		client: client,
		ytdlp:  ytdlp,
		work:   opts.WorkDir,

		remoteOnly:  opts.RemoteOnly,
		youtubeOnly: opts.YouTubeOnly,
	}
}

// Fetch returns a local path for ref. Local files are used in place unless
// the fetcher is remote only.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Video, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidURL)
	}

	if !strings.Contains(ref, "://") {
		if f.remoteOnly {
			return nil, fmt.Errorf("%w: %s", ErrInvalidURL, ref)
		}
		info, err := os.Stat(ref)
		if err != nil || info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidURL, ref)
		}
		return &Video{Path: ref, Cleanup: func() {}}, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, ref)
	}
	if f.youtubeOnly && !IsYouTube(u) {
		return nil, fmt.Errorf("%w: only YouTube URLs are accepted: %s", ErrInvalidURL, ref)
	}

	if f.work != "" {
		if err := os.MkdirAll(f.work, 0755); err != nil {
			return nil, err
		}
	}
	dir, err := os.MkdirTemp(f.work, "clipkart-src-*")
	if err != nil {
		return nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	var p string
	if IsYouTube(u) {
		p, err = f.fetchYouTube(ctx, u.String(), dir)
	} else {
		p, err = f.fetchHTTP(ctx, u.String(), dir, true)
	}
	if err != nil {
		cleanup()
		return nil, err
	}

	f.logger.Info().Str("url", ref).Str("path", p).Msg("video downloaded")
	return &Video{Path: p, Cleanup: cleanup}, nil
}

// IsYouTube reports whether u points at a YouTube video
func IsYouTube(u *url.URL) bool {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}

func (f *Fetcher) fetchYouTube(ctx context.Context, rawURL, dir string) (string, error) {
	bin, err := exec.LookPath(f.ytdlp)
	if err != nil {
		return "", fmt.Errorf("yt-dlp not found: %w", err)
	}

	f.logger.Info().Str("url", rawURL).Msg("downloading with yt-dlp")

	cmd := exec.CommandContext(ctx, bin,
		"--no-playlist",
		"--no-progress",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"--merge-output-format", "mp4",
		"-o", filepath.Join(dir, "video.%(ext)s"),
		"--print", "after_move:filepath",
		rawURL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, lastLine(stderr.String()))
	}

	if p := lastLine(stdout.String()); p != "" {
		return p, nil
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "video.*"))
	if len(matches) == 0 {
		return "", errors.New("yt-dlp produced no file")
	}
	return matches[0], nil
}

// fetchHTTP downloads rawURL. When the response is an HTML page and
// followPage is set, the page's embedded video is downloaded instead.
func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL, dir string, followPage bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "clipkart/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download failed: %s returned %s", rawURL, resp.Status)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		if !followPage {
			return "", fmt.Errorf("%s is a web page, not a video", rawURL)
		}
		html, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
		if err != nil {
			return "", err
		}
		videoURL, err := ParseVideoPage(html, rawURL)
		if err != nil {
			return "", err
		}
		f.logger.Debug().Str("page", rawURL).Str("video", videoURL).Msg("resolved embedded video")
		return f.fetchHTTP(ctx, videoURL, dir, false)
	}

	out := filepath.Join(dir, "video"+videoExt(rawURL, mediaType))
	file, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", fmt.Errorf("download interrupted: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return out, nil
}

// ParseVideoPage finds the video a web page embeds, preferring Open Graph
// metadata over inline video tags. Relative URLs resolve against pageURL.
func ParseVideoPage(html []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}

	selectors := []struct{ sel, attr string }{
		{"meta[property='og:video:secure_url']", "content"},
		{"meta[property='og:video:url']", "content"},
		{"meta[property='og:video']", "content"},
		{"meta[name='twitter:player:stream']", "content"},
		{"video[src]", "src"},
		{"video source[src]", "src"},
	}
	for _, s := range selectors {
		if v, ok := doc.Find(s.sel).First().Attr(s.attr); ok && strings.TrimSpace(v) != "" {
			return resolveURL(pageURL, strings.TrimSpace(v)), nil
		}
	}

	return "", fmt.Errorf("no video found on page %s", pageURL)
}

func resolveURL(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func videoExt(rawURL, mediaType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".mp4", ".mkv", ".mov", ".webm", ".m4v", ".avi":
			return ext
		}
	}
	switch mediaType {
	case "video/webm":
		return ".webm"
	case "video/x-matroska":
		return ".mkv"
	case "video/quicktime":
		return ".mov"
	}
	return ".mp4"
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
