package database

import (
	"context"
	"errors"

	"latidos/models"
)

var ErrNotFound = errors.New("report not found")

// Repository is the report store. List returns the most recent report first, Append
// puts a report at the front, Replace patches the mutable fields of one report.
// Implementations must be safe for concurrent use.
type Repository interface {
	List(ctx context.Context) ([]models.Report, error)
	Append(ctx context.Context, report models.Report) error
	Replace(ctx context.Context, id string, patch models.ReportPatch) (models.Report, error)
}

// Find returns the report with the given id.
func Find(ctx context.Context, repo Repository, id string) (models.Report, error) {
	reports, err := repo.List(ctx)
	if err != nil {
		return models.Report{}, err
	}
	for _, r := range reports {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Report{}, ErrNotFound
}
