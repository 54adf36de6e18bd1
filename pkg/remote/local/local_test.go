package local

import (
	"context"
	"io/ioutil"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/pishow/pkg/errors"
)

func setupFs(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dropbox/slides/old", 0755))
	for _, name := range []string{"a.jpg", "b.png", "config.txt", ".dropbox"} {
		require.NoError(t, afero.WriteFile(fs, "/dropbox/slides/"+name, []byte(name), 0644))
	}
}

func TestListFiles(t *testing.T) {
	setupFs(t)
	client := New("/dropbox", clockwork.NewFakeClock(), time.Minute)

	files, err := client.ListFiles(context.Background(), "/slides")
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{"a.jpg", "b.png", "config.txt"}, files)

	_, err = client.ListFiles(context.Background(), "/missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGetFile(t *testing.T) {
	setupFs(t)
	client := New("/dropbox", clockwork.NewFakeClock(), time.Minute)

	r, err := client.GetFile(context.Background(), "/slides/a.jpg")
	require.NoError(t, err)
	defer r.Close()
	contents, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", string(contents))
}

func TestGetMetadata(t *testing.T) {
	setupFs(t)
	modified := time.Date(2019, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/dropbox/slides/config.txt", modified, modified))
	client := New("/dropbox", clockwork.NewFakeClock(), time.Minute)

	md, err := client.GetMetadata(context.Background(), "/slides/config.txt")
	require.NoError(t, err)
	assert.True(t, modified.Equal(md.Modified))

	_, err = client.GetMetadata(context.Background(), "/slides/missing.txt")
	assert.Equal(t, errors.RemoteAPIError{
		Op:   "stat",
		Path: "/slides/missing.txt",
		Err:  errors.ErrNotFound,
	}, err)
}

func TestPoll(t *testing.T) {
	events := make(chan struct{}, 1)
	var watched []string
	var closed int
	watch = func(dir string) (<-chan struct{}, func() error, error) {
		watched = append(watched, dir)
		return events, func() error {
			closed++
			return nil
		}, nil
	}

	clock := clockwork.NewFakeClock()
	client := New("/dropbox", clock, time.Minute)

	// A pending change is reported immediately.
	events <- struct{}{}
	changed, err := client.Poll(context.Background(), "/slides")
	assert.NoError(t, err)
	assert.True(t, changed)

	// Without changes, the poll times out.
	resCh := make(chan bool)
	go func() {
		changed, _ := client.Poll(context.Background(), "/slides")
		resCh <- changed
	}()
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	assert.False(t, <-resCh)

	// The watch is reused between polls.
	assert.Equal(t, []string{"/dropbox/slides"}, watched)

	assert.NoError(t, client.Close())
	assert.Equal(t, 1, closed)
}

func TestPollCanceled(t *testing.T) {
	watch = func(dir string) (<-chan struct{}, func() error, error) {
		return make(chan struct{}), func() error { return nil }, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	changed, err := New("/dropbox", clockwork.NewFakeClock(), time.Minute).Poll(ctx, "/slides")
	assert.False(t, changed)
	assert.Equal(t, context.Canceled, err)
}

func TestPollWatchError(t *testing.T) {
	watch = func(dir string) (<-chan struct{}, func() error, error) {
		return nil, nil, errors.FileNotFound{Path: dir}
	}

	_, err := New("/dropbox", clockwork.NewFakeClock(), time.Minute).Poll(context.Background(), "/slides")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
