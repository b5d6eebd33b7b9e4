// internal/component/services.go
package component

import (
	"context"

	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/form"
	"github.com/yanizio/folio/internal/session"
	"github.com/yanizio/folio/internal/store"
)

// Lister reads archived submissions.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]store.Submission, error)
}

// Services exposes process-wide resources to Components during Init.
type Services struct {
	Config  *config.Config
	Def     *form.FormDef
	Forms   *session.Store
	Cookies session.Cookies
	Gate    form.Gate
	Archive Lister // nil when no archive is configured
}
