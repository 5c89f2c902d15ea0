package dashboard

import (
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/logging"
)

// ErrSessionExpired is returned by a loader when the hospital API rejected
// the session's token. The caller must clear the session.
var ErrSessionExpired = errors.New("session expired")

// Notice is a section-level message shown when that section could not be
// loaded.
type Notice struct {
	Section string `json:"section"`
	Message string `json:"message"`
}

// batch runs a dashboard's independent fetches concurrently. A failing
// fetch never cancels the others: its section stays empty and gets a
// notice.
type batch struct {
	g            errgroup.Group
	mu           sync.Mutex
	notices      []Notice
	unauthorized bool
}

func (b *batch) fetch(section string, fn func() error) {
	b.g.Go(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		logging.Warn("dashboard section failed to load", "section", section, "error", err)

		b.mu.Lock()
		defer b.mu.Unlock()
		if apiclient.IsUnauthorized(err) {
			b.unauthorized = true
		}
		b.notices = append(b.notices, Notice{Section: section, Message: apiclient.UserMessage(err)})
		return nil
	})
}

// wait blocks until every fetch settled and returns the notices sorted by
// section.
func (b *batch) wait() ([]Notice, error) {
	_ = b.g.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unauthorized {
		return nil, ErrSessionExpired
	}
	sort.Slice(b.notices, func(i, j int) bool { return b.notices[i].Section < b.notices[j].Section })
	return b.notices, nil
}
