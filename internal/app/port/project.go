package port

import (
	"context"

	"airdrop_multisend/internal/domain/entity"
)

// ProjectStore is the spreadsheet-backed project tracker.
type ProjectStore interface {
	List(ctx context.Context) ([]entity.Project, error)
	Add(ctx context.Context, project entity.Project) (entity.StoreResult, error)
	UpdateDaily(ctx context.Context, name, value string) (entity.StoreResult, error)
	Delete(ctx context.Context, name string) (entity.StoreResult, error)
}
