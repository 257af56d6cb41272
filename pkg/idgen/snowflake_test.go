package idgen

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateIsUniqueAndIncreasing(t *testing.T) {
	gen := &Snowflake{workerID: 1}

	seen := make(map[int64]bool)
	prev := int64(0)
	for i := 0; i < 10000; i++ {
		id := gen.Generate()
		if seen[id] {
			t.Fatalf("duplicate id %d at iteration %d", id, i)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		seen[id] = true
		prev = id
	}
}

func TestGenerateIsUniqueUnderConcurrency(t *testing.T) {
	gen := &Snowflake{workerID: 1}

	const workers = 8
	const perWorker = 2000

	results := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, gen.Generate())
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	seen := make(map[int64]bool, workers*perWorker)
	for _, ids := range results {
		for _, id := range ids {
			if seen[id] {
				t.Fatalf("duplicate id %d", id)
			}
			seen[id] = true
		}
	}
}

func TestGenerateReferenceNoFormat(t *testing.T) {
	ref := GenerateReferenceNo()
	if !strings.HasPrefix(ref, "TRX") {
		t.Errorf("expected TRX prefix, got %q", ref)
	}
	if len(ref) != len("TRX")+14+8 {
		t.Errorf("unexpected reference length %d: %q", len(ref), ref)
	}
	for _, c := range ref[3:] {
		if c < '0' || c > '9' {
			t.Errorf("non-digit %q in reference %q", c, ref)
		}
	}
}

func TestGenerateAccountNumberFormat(t *testing.T) {
	number := GenerateAccountNumber()
	if len(number) != 10 {
		t.Fatalf("expected 10 digits, got %q", number)
	}
	for _, c := range number {
		if c < '0' || c > '9' {
			t.Fatalf("non-digit %q in account number %q", c, number)
		}
	}
}
