package catalog

import (
	"context"

	"github.com/xraph/thali/id"
)

// Store is the catalog-facing slice of the storage layer.
type Store interface {
	CreateThali(ctx context.Context, t *Thali) error
	GetThali(ctx context.Context, thaliID id.ThaliID) (*Thali, error)
	ListThalis(ctx context.Context, opts ListOpts) ([]*Thali, error)

	CreateExtraItem(ctx context.Context, item *ExtraItem) error
	GetExtraItem(ctx context.Context, itemID id.ExtraItemID) (*ExtraItem, error)
}

type ListOpts struct {
	ReplaceableOnly bool
	AvailableOnly   bool
	Limit           int
	Offset          int
}
