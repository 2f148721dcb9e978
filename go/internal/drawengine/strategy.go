package drawengine

import (
	"sort"

	"github.com/google/uuid"
)

// Strategy partitions ranked players into equally sized match groups.
// ranked is sorted strongest first and len(ranked) == groups*size.
// Implementations must be pure.
type Strategy interface {
	Name() string
	Assign(ranked []Player, groups int) [][]Player
}

// Snake deals players across matches, reversing direction on every pass so
// aggregate ratings even out.
type Snake struct{}

func (Snake) Name() string { return "snake" }

func (Snake) Assign(ranked []Player, groups int) [][]Player {
	out := make([][]Player, groups)
	for i, p := range ranked {
		pass := i / groups
		idx := i % groups
		// Odd passes run backwards
		if pass%2 == 1 {
			idx = groups - 1 - idx
		}
		out[idx] = append(out[idx], p)
	}
	return out
}

// Ladder keeps players of similar strength together: the top group plays on
// the first court, the next group on the second, and so on.
type Ladder struct{}

func (Ladder) Name() string { return "ladder" }

func (Ladder) Assign(ranked []Player, groups int) [][]Player {
	size := len(ranked) / groups
	out := make([][]Player, groups)
	for g := 0; g < groups; g++ {
		out[g] = append([]Player(nil), ranked[g*size:(g+1)*size]...)
	}
	return out
}

// SideSplit deals one match group onto two sides.
// Implementations must be pure.
type SideSplit interface {
	Name() string
	Split(group []Player) (a, b []uuid.UUID)
}

// Alternating deals the group strongest first in A,B,B,A order, so for
// doubles the 1st and 4th face the 2nd and 3rd.
type Alternating struct{}

func (Alternating) Name() string { return "alternating" }

func (Alternating) Split(group []Player) (a, b []uuid.UUID) {
	for i, p := range Rank(group) {
		toA := i%2 == 0
		if (i/2)%2 == 1 {
			toA = !toA
		}
		if toA {
			a = append(a, p.ID)
		} else {
			b = append(b, p.ID)
		}
	}
	return a, b
}

// TopBottom pairs the stronger half of the group against the weaker half.
// An odd player goes to the weaker side.
type TopBottom struct{}

func (TopBottom) Name() string { return "top_bottom" }

func (TopBottom) Split(group []Player) (a, b []uuid.UUID) {
	for i, p := range Rank(group) {
		if i < len(group)/2 {
			a = append(a, p.ID)
		} else {
			b = append(b, p.ID)
		}
	}
	return a, b
}

var sideSplits = map[string]SideSplit{
	Alternating{}.Name(): Alternating{},
	TopBottom{}.Name():   TopBottom{},
}

// SideSplitByName looks up a registered side split.
func SideSplitByName(name string) (SideSplit, bool) {
	s, ok := sideSplits[name]
	return s, ok
}

var strategies = map[string]Strategy{
	Snake{}.Name():  Snake{},
	Ladder{}.Name(): Ladder{},
}

// StrategyByName looks up a registered strategy.
func StrategyByName(name string) (Strategy, bool) {
	s, ok := strategies[name]
	return s, ok
}

// StrategyNames lists registered strategies.
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
