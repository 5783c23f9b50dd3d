package multi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/output"
)

// Multi fans a report out to several outputs concurrently. A failing output
// never prevents delivery to the others.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over the given outputs. Nil entries are skipped.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Len returns the number of wrapped outputs.
func (m *Multi) Len() int { return len(m.outputs) }

// Write delivers the report to every wrapped output and joins their errors
// in output order.
func (m *Multi) Write(ctx context.Context, report model.Report) error {
	errs := make([]error, len(m.outputs))
	var wg sync.WaitGroup
	for i, o := range m.outputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.Write(ctx, report); err != nil {
				errs[i] = fmt.Errorf("output %d: %w", i, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
