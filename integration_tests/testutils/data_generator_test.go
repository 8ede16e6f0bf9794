package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedScore(t *testing.T) {
	tests := []struct {
		name   string
		frames [][]int
		want   int
	}{
		{name: "perfect", frames: [][]int{{10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 10, 10}}, want: 300},
		{name: "all nines", frames: [][]int{{9, 0}, {9, 0}, {9, 0}, {9, 0}, {9, 0}, {9, 0}, {9, 0}, {9, 0}, {9, 0}, {9, 0}}, want: 90},
		{name: "all spares", frames: [][]int{{5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5, 5}}, want: 150},
		{name: "partial", frames: [][]int{{10, 0}, {3, 4}}, want: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpectedScore(tt.frames))
		})
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a := NewTestDataGenerator(42)
	b := NewTestDataGenerator(42)
	assert.Equal(t, a.Game(), b.Game())
	assert.Equal(t, int64(42), a.Seed())
}

func TestGeneratedGamesAreLegal(t *testing.T) {
	gen := NewTestDataGenerator(7)
	for n := 0; n < 200; n++ {
		game := gen.Game()
		assert.Len(t, game, 10)
		for i, f := range game[:9] {
			assert.Len(t, f, 2, "frame %d", i+1)
			assert.LessOrEqual(t, f[0]+f[1], 10, "frame %d", i+1)
		}
		tenth := game[9]
		if tenth[0] == 10 || tenth[0]+tenth[1] == 10 {
			assert.Len(t, tenth, 3)
		} else {
			assert.Len(t, tenth, 2)
		}
	}
}
