package lock

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

func TestSortedUnique(t *testing.T) {
	tests := []struct {
		name string
		in   []int64
		want []int64
	}{
		{"single", []int64{5}, []int64{5}},
		{"already sorted", []int64{1, 2}, []int64{1, 2}},
		{"reversed", []int64{9, 3}, []int64{3, 9}},
		{"duplicates", []int64{4, 4, 2}, []int64{2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sortedUnique(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("sortedUnique(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocalLockerSerializesCriticalSection(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, 1)
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected counter 50, got %d", counter)
	}
}

func TestLocalLockerOpposingPairsDoNotDeadlock(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, _ := locker.Acquire(ctx, 1, 2)
			release()
		}()
		go func() {
			defer wg.Done()
			release, _ := locker.Acquire(ctx, 2, 1)
			release()
		}()
	}

	wg.Wait()
}
