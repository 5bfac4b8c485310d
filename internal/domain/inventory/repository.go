package inventory

import "context"

type Repository interface {
	Get(ctx context.Context, productID string) (*Record, error)
	Save(ctx context.Context, record *Record) error
	List(ctx context.Context) ([]*Record, error)
}
