package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestProcess(t *testing.T) {
	ids := []string{"id1", "id2", "id3"}

	// Mock function that fails on id2
	fn := func(_ context.Context, i int) (string, error) {
		if ids[i] == "id2" {
			return "", errors.New("failed to process id2")
		}
		return "processed " + ids[i], nil
	}

	results, err := Process(context.Background(), ids, 2, fn)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	if results[0].Status != StatusSuccess || results[0].Result != "processed id1" {
		t.Errorf("results[0] = %+v, want success 'processed id1'", results[0])
	}
	if !results[1].Failed() {
		t.Errorf("results[1].Status = %s, want error", results[1].Status)
	}
	if results[1].Error != "failed to process id2" {
		t.Errorf("results[1].Error = %s, want 'failed to process id2'", results[1].Error)
	}
	if results[2].Status != StatusSuccess || results[2].Result != "processed id3" {
		t.Errorf("results[2] = %+v, want success 'processed id3'", results[2])
	}
}

func TestProcess_KeepsInputOrder(t *testing.T) {
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i)
	}

	// Earlier items sleep longer so they finish last.
	fn := func(_ context.Context, i int) (string, error) {
		time.Sleep(time.Duration(len(ids)-i) * 5 * time.Millisecond)
		return ids[i], nil
	}

	results, err := Process(context.Background(), ids, len(ids), fn)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for i, res := range results {
		if res.ID != ids[i] || res.Result != ids[i] {
			t.Errorf("results[%d] = %+v, want id and result %s", i, res, ids[i])
		}
	}
}

func TestProcess_RespectsLimit(t *testing.T) {
	ids := make([]string, 10)
	var running, peak atomic.Int32

	fn := func(_ context.Context, i int) (string, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return "", nil
	}

	if _, err := Process(context.Background(), ids, 3, fn); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", got)
	}
}

func TestProcess_Empty(t *testing.T) {
	results, err := Process(context.Background(), nil, 0, func(context.Context, int) (string, error) {
		t.Fatal("fn must not be called")
		return "", nil
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fn := func(ctx context.Context, i int) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}

	results, err := Process(ctx, []string{"a", "b"}, 1, fn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want context.Canceled", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
}

func TestNewSuccessResult(t *testing.T) {
	result := NewSuccessResult("test-id", "test message")

	if result.ID != "test-id" {
		t.Errorf("ID = %s, want test-id", result.ID)
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %s, want success", result.Status)
	}
	if result.Result != "test message" {
		t.Errorf("Result = %s, want 'test message'", result.Result)
	}
	if result.Failed() {
		t.Error("Failed() = true, want false")
	}
}

func TestNewErrorResult(t *testing.T) {
	err := errors.New("test error")
	result := NewErrorResult("test-id", err)

	if result.Status != StatusError {
		t.Errorf("Status = %s, want error", result.Status)
	}
	if result.Error != "test error" {
		t.Errorf("Error = %s, want 'test error'", result.Error)
	}
	if !errors.Is(result.Err, err) {
		t.Errorf("Err = %v, want original error", result.Err)
	}
	if result.Result != "" {
		t.Errorf("Result should be empty, got %s", result.Result)
	}
}
