package api

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/auth"
	"github.com/padelhub/gamenight/go/internal/lifecycle"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/waitlist"
)

// LifecycleApp defines what the service layer needs from the lifecycle application
type LifecycleApp interface {
	CreateEvent(ctx context.Context, req lifecycle.CreateEventRequest, actor models.Actor) (*models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Transition(ctx context.Context, eventID uuid.UUID, target models.EventState, actor models.Actor, opts lifecycle.TransitionOptions) (*models.Event, error)
}

// WaitlistApp defines what the service layer needs from the waitlist application
type WaitlistApp interface {
	Register(ctx context.Context, eventID, playerID uuid.UUID) (*models.RSVP, error)
	Cancel(ctx context.Context, rsvpID uuid.UUID, actor models.Actor) (*waitlist.CancelResult, error)
	Decline(ctx context.Context, eventID, playerID uuid.UUID) (*models.RSVP, error)
	ListRoster(ctx context.Context, eventID uuid.UUID) ([]models.RosterEntry, error)
}

// DrawApp defines what the service layer needs from the draw application
type DrawApp interface {
	GenerateDraw(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Draw, error)
	GetDraw(ctx context.Context, eventID uuid.UUID) (*models.Draw, error)
	RecordResult(ctx context.Context, eventID uuid.UUID, matchNumber, sideAGames, sideBGames int, actor models.Actor) (*models.MatchResult, error)
	ListResults(ctx context.Context, eventID uuid.UUID) ([]*models.MatchResult, error)
}

// LeaderboardApp defines what the service layer needs from the leaderboard
type LeaderboardApp interface {
	ComputeRankings(ctx context.Context, playerIDs []uuid.UUID, asOf time.Time) ([]models.PlayerRanking, error)
}

// Service implements every game night procedure
type Service struct {
	lifecycle   LifecycleApp
	waitlist    WaitlistApp
	draws       DrawApp
	leaderboard LeaderboardApp
}

// NewService creates a new API service
func NewService(lc LifecycleApp, wl WaitlistApp, draws DrawApp, lb LeaderboardApp) *Service {
	return &Service{lifecycle: lc, waitlist: wl, draws: draws, leaderboard: lb}
}

// Route is one procedure path and its handler.
type Route struct {
	Path    string
	Handler http.Handler
}

// Routes builds a handler per procedure. Callers are resolved with resolver.
func (s *Service) Routes(resolver auth.Resolver, opts ...connect.HandlerOption) []Route {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(NewAuthInterceptor(resolver)),
	}, opts...)

	return []Route{
		unary(ProcedureCreateEvent, s.CreateEvent, opts),
		unary(ProcedureGetEvent, s.GetEvent, opts),
		unary(ProcedureTransitionEvent, s.TransitionEvent, opts),
		unary(ProcedureRegisterRsvp, s.RegisterRsvp, opts),
		unary(ProcedureCancelRsvp, s.CancelRsvp, opts),
		unary(ProcedureDeclineRsvp, s.DeclineRsvp, opts),
		unary(ProcedureListRoster, s.ListRoster, opts),
		unary(ProcedureGenerateDraw, s.GenerateDraw, opts),
		unary(ProcedureGetDraw, s.GetDraw, opts),
		unary(ProcedureRecordResult, s.RecordResult, opts),
		unary(ProcedureListResults, s.ListResults, opts),
		unary(ProcedureComputeRankings, s.ComputeRankings, opts),
	}
}

// Handler serves all routes from a single mux.
func (s *Service) Handler(resolver auth.Resolver, opts ...connect.HandlerOption) http.Handler {
	mux := http.NewServeMux()
	for _, r := range s.Routes(resolver, opts...) {
		mux.Handle(r.Path, r.Handler)
	}
	return mux
}

func unary[Req, Res any](procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) Route {
	h := connect.NewUnaryHandler(procedure, func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
		res, err := fn(ctx, req.Msg)
		if err != nil {
			return nil, connectError(procedure, err)
		}
		return connect.NewResponse(res), nil
	}, opts...)
	return Route{Path: procedure, Handler: h}
}

// CreateEvent creates a DRAFT event
func (s *Service) CreateEvent(ctx context.Context, req *CreateEventRequest) (*EventResponse, error) {
	e, err := s.lifecycle.CreateEvent(ctx, *req, auth.ActorFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &EventResponse{Event: e}, nil
}

// GetEvent retrieves an event by ID
func (s *Service) GetEvent(ctx context.Context, req *GetEventRequest) (*EventResponse, error) {
	e, err := s.lifecycle.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	return &EventResponse{Event: e}, nil
}

// TransitionEvent moves an event to the target state
func (s *Service) TransitionEvent(ctx context.Context, req *TransitionEventRequest) (*EventResponse, error) {
	e, err := s.lifecycle.Transition(ctx, req.EventID, req.Target, auth.ActorFrom(ctx), lifecycle.TransitionOptions{Confirm: req.Confirm})
	if err != nil {
		return nil, err
	}
	return &EventResponse{Event: e}, nil
}

// RegisterRsvp registers a player for an event
func (s *Service) RegisterRsvp(ctx context.Context, req *RegisterRsvpRequest) (*RSVPResponse, error) {
	r, err := s.waitlist.Register(ctx, req.EventID, req.PlayerID)
	if err != nil {
		return nil, err
	}
	return &RSVPResponse{RSVP: r}, nil
}

// CancelRsvp cancels an RSVP and reports any promotion
func (s *Service) CancelRsvp(ctx context.Context, req *CancelRsvpRequest) (*CancelRsvpResponse, error) {
	res, err := s.waitlist.Cancel(ctx, req.RSVPID, auth.ActorFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &CancelRsvpResponse{Cancelled: res.Cancelled, Promoted: res.Promoted}, nil
}

// DeclineRsvp records that a player will not attend
func (s *Service) DeclineRsvp(ctx context.Context, req *DeclineRsvpRequest) (*RSVPResponse, error) {
	r, err := s.waitlist.Decline(ctx, req.EventID, req.PlayerID)
	if err != nil {
		return nil, err
	}
	return &RSVPResponse{RSVP: r}, nil
}

// ListRoster returns confirmed then waitlisted RSVPs
func (s *Service) ListRoster(ctx context.Context, req *ListRosterRequest) (*ListRosterResponse, error) {
	entries, err := s.waitlist.ListRoster(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.RosterEntry{}
	}
	return &ListRosterResponse{Entries: entries}, nil
}

// GenerateDraw draws matches for a frozen event
func (s *Service) GenerateDraw(ctx context.Context, req *GenerateDrawRequest) (*DrawResponse, error) {
	d, err := s.draws.GenerateDraw(ctx, req.EventID, auth.ActorFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &DrawResponse{Draw: d}, nil
}

// GetDraw retrieves the draw of an event
func (s *Service) GetDraw(ctx context.Context, req *GetDrawRequest) (*DrawResponse, error) {
	d, err := s.draws.GetDraw(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	return &DrawResponse{Draw: d}, nil
}

// RecordResult stores a match score
func (s *Service) RecordResult(ctx context.Context, req *RecordResultRequest) (*RecordResultResponse, error) {
	r, err := s.draws.RecordResult(ctx, req.EventID, req.MatchNumber, req.SideAGames, req.SideBGames, auth.ActorFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &RecordResultResponse{Result: r}, nil
}

// ListResults returns the recorded results of an event
func (s *Service) ListResults(ctx context.Context, req *ListResultsRequest) (*ListResultsResponse, error) {
	results, err := s.draws.ListResults(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*models.MatchResult{}
	}
	return &ListResultsResponse{Results: results}, nil
}

// ComputeRankings ranks players over the recent published events
func (s *Service) ComputeRankings(ctx context.Context, req *ComputeRankingsRequest) (*ComputeRankingsResponse, error) {
	rankings, err := s.leaderboard.ComputeRankings(ctx, req.PlayerIDs, req.AsOf)
	if err != nil {
		return nil, err
	}
	if rankings == nil {
		rankings = []models.PlayerRanking{}
	}
	return &ComputeRankingsResponse{Rankings: rankings}, nil
}
