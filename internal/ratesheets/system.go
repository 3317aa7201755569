package ratesheets

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/internal/catalog"
	"github.com/mortarhq/mortar/pkg/pagination"
)

// System defines the public contract for rate-sheet operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	Submit(ctx context.Context, cmd SubmitCommand) (*RateSheet, error)
	Find(ctx context.Context, id uuid.UUID) (*RateSheet, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[RateSheet], error)
	Retry(ctx context.Context, id uuid.UUID) (*RateSheet, error)
	Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *RateSheet, error)

	// Tick claims and processes one batch of pending sheets. The
	// coordinator's run loop calls it on an interval; tests call it
	// directly.
	Tick(ctx context.Context) error
}

// Catalog is the slice of the catalog system the coordinator needs:
// lender resolution for extraction context and the transactional sheet
// application.
type Catalog interface {
	FindLender(ctx context.Context, id uuid.UUID) (*catalog.Lender, error)
	ApplyRateSheet(ctx context.Context, cmd catalog.ApplyCommand) (*catalog.ApplyResult, error)
}

// Blob is the slice of the storage system the coordinator uses.
type Blob interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}
