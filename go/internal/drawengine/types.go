package drawengine

import (
	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/models"
)

// Player is one confirmed roster entry with the rating snapshot used for the draw.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Rating   float64   `json:"rating"`
	Position int64     `json:"position"`
}

// Options tunes a generation run. The zero value uses the snake strategy
// with alternating sides, benches leftovers and schedules extra rounds when
// courts run out.
type Options struct {
	Strategy  Strategy
	Sides     SideSplit
	Leftover  models.LeftoverPolicy
	Shortfall models.CourtShortfallPolicy
}

func (o Options) withDefaults() Options {
	if o.Strategy == nil {
		o.Strategy = Snake{}
	}
	if o.Sides == nil {
		o.Sides = Alternating{}
	}
	if o.Leftover == "" {
		o.Leftover = models.LeftoverBench
	}
	if o.Shortfall == "" {
		o.Shortfall = models.ShortfallRounds
	}
	return o
}
