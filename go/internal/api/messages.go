package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/lifecycle"
	"github.com/padelhub/gamenight/go/internal/models"
)

type CreateEventRequest = lifecycle.CreateEventRequest

type EventResponse struct {
	Event *models.Event `json:"event"`
}

type GetEventRequest struct {
	EventID uuid.UUID `json:"event_id"`
}

type TransitionEventRequest struct {
	EventID uuid.UUID         `json:"event_id"`
	Target  models.EventState `json:"target"`
	Confirm bool              `json:"confirm"`
}

type RegisterRsvpRequest struct {
	EventID  uuid.UUID `json:"event_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type DeclineRsvpRequest = RegisterRsvpRequest

type RSVPResponse struct {
	RSVP *models.RSVP `json:"rsvp"`
}

type CancelRsvpRequest struct {
	RSVPID uuid.UUID `json:"rsvp_id"`
}

type CancelRsvpResponse struct {
	Cancelled *models.RSVP `json:"cancelled"`
	Promoted  *models.RSVP `json:"promoted,omitempty"`
}

type ListRosterRequest struct {
	EventID uuid.UUID `json:"event_id"`
}

type ListRosterResponse struct {
	Entries []models.RosterEntry `json:"entries"`
}

type GenerateDrawRequest struct {
	EventID uuid.UUID `json:"event_id"`
}

type GetDrawRequest = GenerateDrawRequest

type DrawResponse struct {
	Draw *models.Draw `json:"draw"`
}

type RecordResultRequest struct {
	EventID     uuid.UUID `json:"event_id"`
	MatchNumber int       `json:"match_number"`
	SideAGames  int       `json:"side_a_games"`
	SideBGames  int       `json:"side_b_games"`
}

type RecordResultResponse struct {
	Result *models.MatchResult `json:"result"`
}

type ListResultsRequest = GenerateDrawRequest

type ListResultsResponse struct {
	Results []*models.MatchResult `json:"results"`
}

type ComputeRankingsRequest struct {
	PlayerIDs []uuid.UUID `json:"player_ids,omitempty"`
	// AsOf defaults to now.
	AsOf time.Time `json:"as_of,omitempty"`
}

type ComputeRankingsResponse struct {
	Rankings []models.PlayerRanking `json:"rankings"`
}
