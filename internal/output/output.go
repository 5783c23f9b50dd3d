package output

import (
	"context"

	"github.com/hejijunhao/tagcheck/internal/model"
)

// Output defines the interface for validation report destinations.
type Output interface {
	Write(ctx context.Context, report model.Report) error
	Close() error
}
