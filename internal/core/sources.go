package core

import (
	"context"

	"cropmap_service/internal/dataset"
	"cropmap_service/internal/domain/model"
)

// DatasetSource produces the production dataset at start-up.
type DatasetSource interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// DistrictLocator resolves a district name to a map position.
type DistrictLocator interface {
	LocateDistrict(ctx context.Context, state, district string) (model.Coordinate, error)
}
