package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestForCoversRangeOnce(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
	}{
		{"empty", 0, 4},
		{"inline", 10, 4},
		{"split", 1000, 4},
		{"uneven", 1001, 3},
		{"single worker", 500, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			p := NewPool(tt.workers)
			err := p.For(context.Background(), tt.n, func(start, end int) error {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("for failed: %v", err)
			}
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestForPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPool(4)

	err := p.Each(context.Background(), 1000, func(i int) error {
		if i == 777 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestForRecoversPanic(t *testing.T) {
	p := NewPool(4)

	err := p.Each(context.Background(), 1000, func(i int) error {
		if i == 10 {
			panic("worker exploded")
		}
		return nil
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if pe.Value != "worker exploded" {
		t.Errorf("unexpected panic value %v", pe.Value)
	}
	if pe.Start > 10 || pe.End <= 10 {
		t.Errorf("chunk [%d,%d) does not contain index 10", pe.Start, pe.End)
	}
}

func TestNilPoolUsesDefaults(t *testing.T) {
	var p *Pool
	var sum int64
	err := p.Each(context.Background(), 100, func(i int) error {
		atomic.AddInt64(&sum, int64(i))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum != 4950 {
		t.Errorf("expected 4950, got %d", sum)
	}
}
