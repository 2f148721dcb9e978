// Package drawengine partitions a frozen roster into rating-balanced matches
// and assigns them to courts and rounds. Everything here is pure: the same
// inputs always produce the same Draw.
package drawengine

import (
	"bytes"
	"slices"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
)

const op = "drawengine.Generate"

// Generate builds the draw for roster on courts with format players per match.
// GeneratedAt and EventID are left for the caller to fill.
func Generate(roster []Player, courts []models.Court, format int, opts Options) (*models.Draw, error) {
	opts = opts.withDefaults()

	if format < 2 {
		return nil, apperr.New(apperr.KindInvalidArgument, op).With("format", strconv.Itoa(format))
	}
	if len(roster) < format {
		return nil, apperr.New(apperr.KindInsufficientPlayers, op).
			With("players", strconv.Itoa(len(roster))).
			With("format", strconv.Itoa(format))
	}
	if len(courts) == 0 {
		return nil, apperr.New(apperr.KindInsufficientCourts, op).With("courts", "0")
	}

	ranked := Rank(roster)
	full := len(ranked) / format
	playing := ranked[:full*format]
	leftover := ranked[full*format:]

	var short, bench []Player
	switch {
	case opts.Leftover == models.LeftoverShortMatch && len(leftover) >= 2:
		short = leftover
	default:
		bench = leftover
	}

	groups := opts.Strategy.Assign(playing, full)
	if short != nil {
		groups = append(groups, short)
	}

	ordered := orderCourts(courts)
	if len(groups) > len(ordered) && opts.Shortfall == models.ShortfallFail {
		return nil, apperr.New(apperr.KindInsufficientCourts, op).
			With("matches", strconv.Itoa(len(groups))).
			With("courts", strconv.Itoa(len(ordered)))
	}

	draw := &models.Draw{
		Format:   format,
		Strategy: opts.Strategy.Name(),
		Rounds:   (len(groups) + len(ordered) - 1) / len(ordered),
		Matches:  make([]models.Match, 0, len(groups)),
		Ratings:  make(map[uuid.UUID]float64, len(roster)),
	}
	for _, p := range ranked {
		draw.Ratings[p.ID] = p.Rating
	}
	for _, p := range bench {
		draw.Bench = append(draw.Bench, p.ID)
	}

	// Round 1 is filled in court order before round 2 starts
	for i, g := range groups {
		court := ordered[i%len(ordered)]
		a, b := opts.Sides.Split(g)
		draw.Matches = append(draw.Matches, models.Match{
			Number:      i + 1,
			Round:       i/len(ordered) + 1,
			CourtID:     court.ID,
			CourtLabel:  court.Label,
			SideA:       a,
			SideB:       b,
			RatingTotal: total(g),
		})
	}
	return draw, nil
}

// Rank returns a copy of roster sorted by rating descending, then roster
// position ascending, then id.
func Rank(roster []Player) []Player {
	ranked := slices.Clone(roster)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	return ranked
}

func orderCourts(courts []models.Court) []models.Court {
	out := slices.Clone(courts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func total(group []Player) float64 {
	var sum float64
	for _, p := range group {
		sum += p.Rating
	}
	return sum
}
