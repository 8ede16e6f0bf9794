package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

const maxPins = 10

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed so failing runs can be replayed.
func (g *TestDataGenerator) Seed() int64 {
	return g.seed
}

// BowlerName returns a random bowler name.
func (g *TestDataGenerator) BowlerName() string {
	return g.faker.Name()
}

// Lane returns a random lane number.
func (g *TestDataGenerator) Lane() int {
	return g.faker.Number(1, 48)
}

// Frame returns legal rolls for frames 1-9. Strikes are stored as [10 0].
func (g *TestDataGenerator) Frame() []int {
	first := g.faker.Number(0, maxPins)
	if first == maxPins {
		return []int{maxPins, 0}
	}
	return []int{first, g.faker.Number(0, maxPins-first)}
}

// TenthFrame returns legal rolls for the final frame, with a fill ball
// whenever a strike or spare earns one.
func (g *TestDataGenerator) TenthFrame() []int {
	first := g.faker.Number(0, maxPins)
	if first == maxPins {
		second := g.faker.Number(0, maxPins)
		if second == maxPins {
			return []int{first, second, g.faker.Number(0, maxPins)}
		}
		return []int{first, second, g.faker.Number(0, maxPins-second)}
	}

	second := g.faker.Number(0, maxPins-first)
	if first+second == maxPins {
		return []int{first, second, g.faker.Number(0, maxPins)}
	}
	return []int{first, second}
}

// Game returns a full legal game of ten frames.
func (g *TestDataGenerator) Game() [][]int {
	game := make([][]int, 0, maxPins)
	for i := 0; i < 9; i++ {
		game = append(game, g.Frame())
	}
	return append(game, g.TenthFrame())
}

// ExpectedScore scores a game from its flat ball sequence, independent of
// the frame-based engine under test.
func ExpectedScore(frames [][]int) int {
	var balls []int
	for i, f := range frames {
		if i < 9 && f[0] == maxPins {
			balls = append(balls, maxPins)
			continue
		}
		balls = append(balls, f...)
	}

	total, ball := 0, 0
	for frame := 0; frame < len(frames) && ball < len(balls); frame++ {
		switch {
		case balls[ball] == maxPins:
			total += maxPins + at(balls, ball+1) + at(balls, ball+2)
			ball++
		case ball+1 < len(balls) && balls[ball]+balls[ball+1] == maxPins:
			total += maxPins + at(balls, ball+2)
			ball += 2
		default:
			total += balls[ball] + at(balls, ball+1)
			ball += 2
		}
	}
	return total
}

func at(balls []int, i int) int {
	if i < len(balls) {
		return balls[i]
	}
	return 0
}
