package memstore

import (
	"maps"
	"slices"
	"time"

	"github.com/padelhub/gamenight/go/internal/models"
)

func cloneEvent(e *models.Event) *models.Event {
	if e == nil {
		return nil
	}
	c := *e
	c.RosterSnapshot = slices.Clone(e.RosterSnapshot)
	c.OpenedAt = cloneTime(e.OpenedAt)
	c.FrozenAt = cloneTime(e.FrozenAt)
	c.DrawnAt = cloneTime(e.DrawnAt)
	c.PublishedAt = cloneTime(e.PublishedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneRSVP(r *models.RSVP) *models.RSVP {
	if r == nil {
		return nil
	}
	c := *r
	if r.CancelledBy != nil {
		id := *r.CancelledBy
		c.CancelledBy = &id
	}
	c.PromotedAt = cloneTime(r.PromotedAt)
	return &c
}

func cloneVenue(v *models.Venue) *models.Venue {
	if v == nil {
		return nil
	}
	c := *v
	c.Courts = slices.Clone(v.Courts)
	return &c
}

func clonePlayer(p *models.PlayerProfile) *models.PlayerProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneDraw(d *models.Draw) *models.Draw {
	if d == nil {
		return nil
	}
	c := *d
	c.Bench = slices.Clone(d.Bench)
	c.Ratings = maps.Clone(d.Ratings)
	c.Matches = make([]models.Match, len(d.Matches))
	for i, m := range d.Matches {
		m.SideA = slices.Clone(m.SideA)
		m.SideB = slices.Clone(m.SideB)
		c.Matches[i] = m
	}
	return &c
}

func cloneResult(r *models.MatchResult) *models.MatchResult {
	if r == nil {
		return nil
	}
	c := *r
	c.RatingDeltas = maps.Clone(r.RatingDeltas)
	return &c
}
