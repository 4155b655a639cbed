package storage

import (
	"context"

	"percept/internal/model"
)

// Store defines persistence operations for trained units and run records.
type Store interface {
	Init(ctx context.Context) error
	SaveUnit(ctx context.Context, snapshot model.UnitSnapshot) error
	GetUnit(ctx context.Context, id string) (model.UnitSnapshot, bool, error)
	SaveRun(ctx context.Context, run model.TrainingRun) error
	GetRun(ctx context.Context, id string) (model.TrainingRun, bool, error)
	ListRuns(ctx context.Context, limit int) ([]model.TrainingRun, error)
}
