package dashboard

import (
	"context"

	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
)

// Loader builds dashboard view models. Each Load call issues its own
// fetches; nothing is cached between requests.
type Loader struct {
	api interfaces.APIClient
}

func NewLoader(api interfaces.APIClient) *Loader {
	return &Loader{api: api}
}

// AdminPage is the admin landing: the profile and nothing else.
type AdminPage struct {
	DisplayName string           `json:"display_name"`
	Profile     entities.Profile `json:"profile"`
	Notices     []Notice         `json:"notices,omitempty"`
}

func (l *Loader) LoadAdmin(ctx context.Context, s entities.Session) (AdminPage, error) {
	page := AdminPage{DisplayName: s.DisplayName}

	var b batch
	b.fetch("profile", func() (err error) {
		page.Profile, err = l.api.Profile(ctx, s.Token)
		return err
	})

	notices, err := b.wait()
	if err != nil {
		return AdminPage{}, err
	}
	page.Notices = notices
	return page, nil
}
