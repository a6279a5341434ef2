// Package video wraps the yt-dlp command line tool to read video metadata
// and download media for multimodal extraction.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipekeeper/internal/metrics"
)

const (
	userAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxComments = 5
	filePrefix  = "video_"
)

var (
	// ErrAccessBlocked means the host asked yt-dlp to prove it is not a bot.
	ErrAccessBlocked = errors.New("video host blocked automated access")
	// ErrUnavailable means the metadata or media could not be retrieved.
	ErrUnavailable = errors.New("video unavailable")
)

// Comment is one top-level comment on a video.
type Comment struct {
	Author           string `json:"author"`
	Text             string `json:"text"`
	AuthorIsUploader bool   `json:"author_is_uploader"`
}

// Info is the metadata of a video.
type Info struct {
	Title       string
	Description string
	Duration    float64
	Uploader    string
	UploaderID  string
	UploaderURL string
	Thumbnail   string
	Comments    []Comment
}

// Options configures a Processor.
type Options struct {
	Binary      string
	TempDir     string
	CookiesPath string
	Timeout     time.Duration
	MaxSizeMB   int
}

type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Processor runs yt-dlp.
type Processor struct {
	opts Options
	run  runFunc
}

// NewProcessor creates a processor and makes sure the temp directory exists.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.TempDir == "" {
		opts.TempDir = filepath.Join(os.TempDir(), "recipe-keeper")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if err := os.MkdirAll(opts.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Processor{opts: opts, run: runCommand}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

type ytInfo struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Uploader    string    `json:"uploader"`
	UploaderID  string    `json:"uploader_id"`
	UploaderURL string    `json:"uploader_url"`
	Channel     string    `json:"channel"`
	Thumbnail   string    `json:"thumbnail"`
	Comments    []Comment `json:"comments"`
}

// GetInfo reads title, description, uploader, thumbnail and the top comments.
func (p *Processor) GetInfo(ctx context.Context, videoURL string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	args := append(p.commonArgs(),
		"--dump-single-json",
		"--skip-download",
		"--write-comments",
		"--extractor-args", "youtube:player_client=android,web;comment_sort=top;skip=dash,hls;max_comments="+strconv.Itoa(maxComments*4),
		videoURL,
	)

	stdout, err := p.exec(ctx, "info", args)
	if err != nil {
		return nil, err
	}

	var raw ytInfo
	if err := json.Unmarshal(stdout, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", ErrUnavailable, err)
	}

	info := &Info{
		Title:       raw.Title,
		Description: raw.Description,
		Duration:    raw.Duration,
		Uploader:    raw.Uploader,
		UploaderID:  raw.UploaderID,
		UploaderURL: raw.UploaderURL,
		Thumbnail:   raw.Thumbnail,
	}
	if info.Uploader == "" {
		info.Uploader = raw.Channel
	}
	for _, c := range raw.Comments {
		if len(info.Comments) == maxComments {
			break
		}
		info.Comments = append(info.Comments, c)
	}
	return info, nil
}

// Download fetches the lowest quality mp4 into a uniquely named temp file and
// returns its path. The caller owns the file and must Cleanup it.
func (p *Processor) Download(ctx context.Context, videoURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	name := fmt.Sprintf("%s%d_%s.mp4", filePrefix, time.Now().UnixMilli(), uuid.NewString()[:8])
	path := filepath.Join(p.opts.TempDir, name)

	args := append(p.commonArgs(),
		"--format", "worst[ext=mp4]/worst",
		"--output", path,
		"--extractor-args", "youtube:player_client=android,web;skip=dash,hls",
	)
	if p.opts.MaxSizeMB > 0 {
		args = append(args, "--max-filesize", strconv.Itoa(p.opts.MaxSizeMB)+"M")
	}
	args = append(args, videoURL)

	if _, err := p.exec(ctx, "download", args); err != nil {
		p.Cleanup(path)
		return "", err
	}

	stat, err := os.Stat(path)
	if err != nil || stat.Size() == 0 {
		p.Cleanup(path)
		return "", fmt.Errorf("%w: downloaded file is missing or empty", ErrUnavailable)
	}

	slog.Info("Downloaded video", "path", path, "size_bytes", stat.Size())
	return path, nil
}

// Cleanup removes a downloaded file. Errors are logged, not returned.
func (p *Processor) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove temp video", "path", path, "error", err)
	}
}

// SweepStale deletes downloads older than maxAge that a crashed request
// left behind. It returns the number of files removed.
func (p *Processor) SweepStale(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(p.opts.TempDir)
	if err != nil {
		return 0, fmt.Errorf("read temp dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		fi, err := e.Info()
		if err != nil || fi.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(p.opts.TempDir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (p *Processor) commonArgs() []string {
	args := []string{"--no-playlist", "--no-warnings", "--quiet", "--user-agent", userAgent}
	if p.opts.CookiesPath != "" {
		if _, err := os.Stat(p.opts.CookiesPath); err == nil {
			args = append(args, "--cookies", p.opts.CookiesPath)
		}
	}
	return args
}

func (p *Processor) exec(ctx context.Context, op string, args []string) ([]byte, error) {
	start := time.Now()
	stdout, stderr, err := p.run(ctx, p.opts.Binary, args...)

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", "yt-dlp"),
		attribute.String("operation", op),
		attribute.String("status", status),
	)
	metrics.ExternalAPICallsTotal.Add(ctx, 1, attrs)
	metrics.ExternalAPIDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err == nil {
		return stdout, nil
	}
	return nil, classify(ctx, err, stderr)
}

func classify(ctx context.Context, err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if strings.Contains(msg, "Sign in to confirm") || strings.Contains(msg, "not a bot") {
		slog.Warn("Video host bot detection triggered", "stderr", lastLine(msg))
		return fmt.Errorf("%w: %s", ErrAccessBlocked, lastLine(msg))
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, lastLine(msg))
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
