package game

import "testing"

func TestInitializeBoxes_RowMajor(t *testing.T) {
	boxes := InitializeBoxes()
	if len(boxes) != BoxCount {
		t.Fatalf("len=%d want %d", len(boxes), BoxCount)
	}

	for i, b := range boxes {
		if b.ID != i {
			t.Fatalf("box %d has id %d", i, b.ID)
		}
		if b.Row != i/GridSize || b.Col != i%GridSize {
			t.Fatalf("box %d row/col = %d/%d want %d/%d", i, b.Row, b.Col, i/GridSize, i%GridSize)
		}
		if b.Owner != nil {
			t.Fatalf("box %d owner not nil", i)
		}
		if b.Status != BoxAvailable {
			t.Fatalf("box %d status=%s want available", i, b.Status)
		}
	}
}

func TestShuffledDigits_IsPermutation(t *testing.T) {
	for run := 0; run < 1000; run++ {
		nums := ShuffledDigits()
		if len(nums) != 10 {
			t.Fatalf("len=%d want 10", len(nums))
		}
		var seen [10]bool
		for _, n := range nums {
			if n < 0 || n > 9 {
				t.Fatalf("digit %d out of range", n)
			}
			if seen[n] {
				t.Fatalf("digit %d repeated in %v", n, nums)
			}
			seen[n] = true
		}
	}
}

func TestShuffledDigits_RoughlyUniform(t *testing.T) {
	// Count how often each digit lands in position 0. With a fair shuffle
	// each digit shows up ~runs/10 times; a biased Fisher-Yates (e.g. the
	// classic j = IntN(n) mistake) drifts well outside 20% of that.
	const runs = 20000
	var counts [10]int
	for i := 0; i < runs; i++ {
		counts[ShuffledDigits()[0]]++
	}

	expected := runs / 10
	for d, c := range counts {
		if c < expected*8/10 || c > expected*12/10 {
			t.Fatalf("digit %d appeared %d times in position 0, expected ~%d", d, c, expected)
		}
	}
}
