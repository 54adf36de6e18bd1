package remote

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
)

// A Listing maps the files in a remote directory to their modification
// times.
type Listing map[string]time.Time

// Version returns a string that changes whenever a file is added, removed, or
// modified.
func (l Listing) Version() string {
	var names []string
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)

	hasher := sha512.New()
	for _, name := range names {
		fmt.Fprintf(hasher, "%s: %d\n", name, l[name].UnixNano())
	}
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}

// ListingPoller implements Client.Poll for object stores that don't have a
// way to wait for changes. It repeatedly lists the directory until the
// listing changes.
type ListingPoller struct {
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration

	// versions is the last version seen for each directory.
	versions map[string]string
}

// NewListingPoller creates a new ListingPoller.
func NewListingPoller(clock clockwork.Clock, interval, timeout time.Duration) *ListingPoller {
	return &ListingPoller{
		clock:    clock,
		interval: interval,
		timeout:  timeout,
		versions: map[string]string{},
	}
}

// Poll blocks until the result of `list` differs from the last result seen
// for `dir`, or until the poll timeout elapses. The first call for a
// directory records a baseline before waiting.
func (p *ListingPoller) Poll(ctx context.Context, dir string,
	list func(context.Context) (Listing, error)) (bool, error) {

	baseline, ok := p.versions[dir]
	if !ok {
		listing, err := list(ctx)
		if err != nil {
			return false, err
		}
		baseline = listing.Version()
		p.versions[dir] = baseline
	}

	timeout := p.clock.NewTimer(p.timeout)
	defer timeout.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timeout.Chan():
			return false, nil
		case <-p.clock.After(p.interval):
		}

		listing, err := list(ctx)
		if err != nil {
			return false, err
		}

		if version := listing.Version(); version != baseline {
			p.versions[dir] = version
			return true, nil
		}
	}
}
