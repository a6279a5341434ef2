package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, run runFunc) *Processor {
	t.Helper()
	p, err := NewProcessor(Options{TempDir: t.TempDir(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	p.run = run
	return p
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestGetInfo(t *testing.T) {
	var comments []string
	for i := 0; i < 8; i++ {
		comments = append(comments, fmt.Sprintf(`{"author":"user%d","text":"comment %d","author_is_uploader":%t}`, i, i, i == 2))
	}
	payload := `{"title":"Best Pancakes","description":"Flour, eggs, milk","duration":61.5,` +
		`"channel":"Chef Anna","uploader_id":"@chefanna","uploader_url":"https://www.tiktok.com/@chefanna",` +
		`"thumbnail":"https://img.example.com/t.jpg","comments":[` + strings.Join(comments, ",") + `]}`

	var gotArgs []string
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		assert.Equal(t, "yt-dlp", name)
		gotArgs = args
		return []byte(payload), nil, nil
	})

	info, err := p.GetInfo(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)

	assert.Equal(t, "Best Pancakes", info.Title)
	assert.Equal(t, "Flour, eggs, milk", info.Description)
	assert.Equal(t, "Chef Anna", info.Uploader, "channel is used when uploader is missing")
	assert.Equal(t, "https://www.tiktok.com/@chefanna", info.UploaderURL)
	assert.Equal(t, "https://img.example.com/t.jpg", info.Thumbnail)
	require.Len(t, info.Comments, maxComments)
	assert.Equal(t, "user0", info.Comments[0].Author)
	assert.True(t, info.Comments[2].AuthorIsUploader)

	assert.Contains(t, gotArgs, "--write-comments")
	assert.Contains(t, gotArgs, "--skip-download")
	assert.Contains(t, argAfter(gotArgs, "--extractor-args"), "comment_sort=top")
	assert.Equal(t, "https://youtu.be/abc", gotArgs[len(gotArgs)-1])
}

func TestGetInfo_BotDetection(t *testing.T) {
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("WARNING: something\nERROR: [youtube] abc: Sign in to confirm you're not a bot"), errors.New("exit status 1")
	})

	_, err := p.GetInfo(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccessBlocked)
	assert.Contains(t, err.Error(), "Sign in to confirm")
}

func TestGetInfo_Unavailable(t *testing.T) {
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("ERROR: Video unavailable"), errors.New("exit status 1")
	})

	_, err := p.GetInfo(context.Background(), "https://youtu.be/abc")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrAccessBlocked)
}

func TestGetInfo_CancelledContext(t *testing.T) {
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, nil, errors.New("signal: killed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetInfo(ctx, "https://youtu.be/abc")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetInfo_BadJSON(t *testing.T) {
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("not json"), nil, nil
	})

	_, err := p.GetInfo(context.Background(), "https://youtu.be/abc")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDownload(t *testing.T) {
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		assert.Equal(t, "worst[ext=mp4]/worst", argAfter(args, "--format"))
		return nil, nil, os.WriteFile(argAfter(args, "--output"), []byte("mp4 bytes"), 0o644)
	})
	p.opts.MaxSizeMB = 50

	path, err := p.Download(context.Background(), "https://www.tiktok.com/@a/video/1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), filePrefix))
	assert.FileExists(t, path)

	p.Cleanup(path)
	assert.NoFileExists(t, path)
}

func TestDownload_UniqueNames(t *testing.T) {
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, nil, os.WriteFile(argAfter(args, "--output"), []byte("x"), 0o644)
	})

	a, err := p.Download(context.Background(), "https://youtu.be/a")
	require.NoError(t, err)
	b, err := p.Download(context.Background(), "https://youtu.be/a")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDownload_EmptyFileIsRemoved(t *testing.T) {
	var out string
	p := newTestProcessor(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		out = argAfter(args, "--output")
		return nil, nil, os.WriteFile(out, nil, 0o644)
	})

	_, err := p.Download(context.Background(), "https://youtu.be/abc")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoFileExists(t, out)
}

func TestCookiesArgument(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# Netscape"), 0o600))

	p := newTestProcessor(t, nil)
	p.opts.CookiesPath = cookies
	assert.Equal(t, cookies, argAfter(p.commonArgs(), "--cookies"))

	p.opts.CookiesPath = filepath.Join(t.TempDir(), "missing.txt")
	assert.NotContains(t, p.commonArgs(), "--cookies")
}

func TestSweepStale(t *testing.T) {
	p := newTestProcessor(t, nil)
	dir := p.opts.TempDir

	old := filepath.Join(dir, filePrefix+"old.mp4")
	fresh := filepath.Join(dir, filePrefix+"fresh.mp4")
	other := filepath.Join(dir, "keep.txt")
	for _, f := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	}
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	removed, err := p.SweepStale(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}
