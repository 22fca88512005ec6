package game

import "math/rand/v2"

const (
	// GridSize is the number of rows and columns.
	GridSize = 10
	// BoxCount is the total number of boxes on a table.
	BoxCount = GridSize * GridSize
)

// InitializeBoxes builds the empty 100-box grid in row-major order.
func InitializeBoxes() []Box {
	boxes := make([]Box, 0, BoxCount)
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			boxes = append(boxes, Box{
				ID:     row*GridSize + col,
				Row:    row,
				Col:    col,
				Owner:  nil,
				Status: BoxAvailable,
			})
		}
	}
	return boxes
}

// ShuffledDigits returns a uniform random permutation of the digits 0-9
// (in-place Fisher-Yates).
func ShuffledDigits() []int {
	nums := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	for i := len(nums) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		nums[i], nums[j] = nums[j], nums[i]
	}
	return nums
}

// NewEmptyState is the 1:1 companion record created alongside every table.
func NewEmptyState(now int64) GameState {
	return GameState{
		Boxes:           InitializeBoxes(),
		RowNumbers:      nil,
		ColNumbers:      nil,
		NumbersRevealed: false,
		UpdatedAt:       now,
	}
}
