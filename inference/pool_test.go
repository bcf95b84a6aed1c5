package inference

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/go-segeval/tensor"
)

// openTestPool skips the test when the model or the runtime is missing.
func openTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	if _, err := os.Stat(testModelPath); err != nil {
		t.Skipf("Skipping: model not available at %s", testModelPath)
	}

	pool, err := NewPool(testModelPath, size, testIONames())
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewPool failed: %v", err)
	}
	return pool
}

func TestNewPool_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -5} {
		pool := openTestPool(t, size)
		if pool.Size() != 1 {
			t.Errorf("expected size 1 for input %d, got %d", size, pool.Size())
		}
		_ = pool.Close()
	}
}

func TestNewPool_ModelNotFound(t *testing.T) {
	_, err := NewPool("../testdata/nonexistent.onnx", 2, DefaultIONames)
	if err == nil {
		t.Error("expected error for non-existent model file")
	}
}

func TestPool_AcquireRelease(t *testing.T) {
	pool := openTestPool(t, 2)
	defer func() { _ = pool.Close() }()

	ctx := context.Background()

	s1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 1 failed: %v", err)
	}
	s2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 2 failed: %v", err)
	}

	// Third acquire should block - test with timeout
	ctx3, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = pool.Acquire(ctx3)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}

	pool.Release(s1)

	s3, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 3 failed: %v", err)
	}

	pool.Release(s2)
	pool.Release(s3)
}

func TestPool_ReleaseNil(t *testing.T) {
	pool := openTestPool(t, 1)
	defer func() { _ = pool.Close() }()

	// Should not panic when releasing nil
	pool.Release(nil)
}

func TestPool_Close_Idempotent(t *testing.T) {
	pool := openTestPool(t, 2)

	if err := pool.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestPool_AcquireAfterClose(t *testing.T) {
	pool := openTestPool(t, 1)
	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := pool.Acquire(context.Background())
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_Run(t *testing.T) {
	pool := openTestPool(t, 1)
	defer func() { _ = pool.Close() }()

	out, err := pool.Run(context.Background(), tensor.Zeros(3, 64, 64, 1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Dim(0) != 3 {
		t.Errorf("expected 3 samples, got shape %v", out.Shape())
	}
}

// TestPool_ReleaseDuringClose races Release against Close on a pool of bare
// sessions; neither order may panic and the session must end up closed.
func TestPool_ReleaseDuringClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		pool := &Pool{sessions: make(chan *Session, 1), size: 1}
		session := &Session{}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			pool.Release(session)
		}()
		go func() {
			defer wg.Done()
			_ = pool.Close()
		}()
		wg.Wait()

		if !session.closed {
			t.Fatalf("iteration %d: session left open", i)
		}
	}
}
