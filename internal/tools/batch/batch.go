package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Status values of a Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultConcurrency is used when Process is called with a limit below one.
const DefaultConcurrency = 4

// Result represents the result of a single operation in a batch
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`

	// Err is the original error for callers that need errors.As.
	Err error `json:"-"`
}

// Failed reports whether the operation returned an error.
func (r Result) Failed() bool {
	return r.Status == StatusError
}

// Process calls fn once for every id, running at most limit calls at a time.
// The returned slice has one Result per id, in the order of ids, no matter in
// which order the calls finish.
//
// Process returns an error only if ctx is done before every call returned; in
// that case no results are returned.
func Process(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, i int) (string, error)) ([]Result, error) {
	if limit < 1 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			res, err := fn(ctx, i)
			if err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			results[i] = NewSuccessResult(id, res)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// NewSuccessResult creates a success result
func NewSuccessResult(id, message string) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
		Err:    err,
	}
}
