package waitlist

import (
	"sort"

	"github.com/padelhub/gamenight/go/internal/models"
)

// OrderRoster returns the active rows of rsvps: CONFIRMED by position, then
// WAITLISTED by position, each carrying its 1-based rank within its status.
// DECLINED and CANCELLED rows are left out.
func OrderRoster(rsvps []*models.RSVP) []models.RosterEntry {
	var confirmed, waitlisted []*models.RSVP
	for _, r := range rsvps {
		switch r.Status {
		case models.RSVPStatusConfirmed:
			confirmed = append(confirmed, r)
		case models.RSVPStatusWaitlisted:
			waitlisted = append(waitlisted, r)
		}
	}
	byPosition := func(rs []*models.RSVP) {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Position < rs[j].Position })
	}
	byPosition(confirmed)
	byPosition(waitlisted)

	out := make([]models.RosterEntry, 0, len(confirmed)+len(waitlisted))
	for i, r := range confirmed {
		out = append(out, models.RosterEntry{RSVP: *r, Rank: i + 1})
	}
	for i, r := range waitlisted {
		out = append(out, models.RosterEntry{RSVP: *r, Rank: i + 1})
	}
	return out
}

// Snapshot turns an ordered roster into the frozen form stored on the event.
func Snapshot(roster []models.RosterEntry) []models.SnapshotEntry {
	out := make([]models.SnapshotEntry, 0, len(roster))
	for _, e := range roster {
		out = append(out, models.SnapshotEntry{
			RSVPID:   e.ID,
			PlayerID: e.PlayerID,
			Status:   e.Status,
			Position: e.Position,
		})
	}
	return out
}

func countConfirmed(rsvps []*models.RSVP) int {
	n := 0
	for _, r := range rsvps {
		if r.Status == models.RSVPStatusConfirmed {
			n++
		}
	}
	return n
}

// oldestWaitlisted returns the WAITLISTED row with the smallest position.
func oldestWaitlisted(rsvps []*models.RSVP) *models.RSVP {
	var oldest *models.RSVP
	for _, r := range rsvps {
		if r.Status != models.RSVPStatusWaitlisted {
			continue
		}
		if oldest == nil || r.Position < oldest.Position {
			oldest = r
		}
	}
	return oldest
}
