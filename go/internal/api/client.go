package api

import (
	"context"

	"connectrpc.com/connect"
)

// Client calls the game night procedures over HTTP.
type Client struct {
	createEvent     *connect.Client[CreateEventRequest, EventResponse]
	getEvent        *connect.Client[GetEventRequest, EventResponse]
	transitionEvent *connect.Client[TransitionEventRequest, EventResponse]
	registerRsvp    *connect.Client[RegisterRsvpRequest, RSVPResponse]
	cancelRsvp      *connect.Client[CancelRsvpRequest, CancelRsvpResponse]
	declineRsvp     *connect.Client[DeclineRsvpRequest, RSVPResponse]
	listRoster      *connect.Client[ListRosterRequest, ListRosterResponse]
	generateDraw    *connect.Client[GenerateDrawRequest, DrawResponse]
	getDraw         *connect.Client[GetDrawRequest, DrawResponse]
	recordResult    *connect.Client[RecordResultRequest, RecordResultResponse]
	listResults     *connect.Client[ListResultsRequest, ListResultsResponse]
	computeRankings *connect.Client[ComputeRankingsRequest, ComputeRankingsResponse]
}

// NewClient creates a client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		createEvent:     connect.NewClient[CreateEventRequest, EventResponse](httpClient, baseURL+ProcedureCreateEvent, opts...),
		getEvent:        connect.NewClient[GetEventRequest, EventResponse](httpClient, baseURL+ProcedureGetEvent, opts...),
		transitionEvent: connect.NewClient[TransitionEventRequest, EventResponse](httpClient, baseURL+ProcedureTransitionEvent, opts...),
		registerRsvp:    connect.NewClient[RegisterRsvpRequest, RSVPResponse](httpClient, baseURL+ProcedureRegisterRsvp, opts...),
		cancelRsvp:      connect.NewClient[CancelRsvpRequest, CancelRsvpResponse](httpClient, baseURL+ProcedureCancelRsvp, opts...),
		declineRsvp:     connect.NewClient[DeclineRsvpRequest, RSVPResponse](httpClient, baseURL+ProcedureDeclineRsvp, opts...),
		listRoster:      connect.NewClient[ListRosterRequest, ListRosterResponse](httpClient, baseURL+ProcedureListRoster, opts...),
		generateDraw:    connect.NewClient[GenerateDrawRequest, DrawResponse](httpClient, baseURL+ProcedureGenerateDraw, opts...),
		getDraw:         connect.NewClient[GetDrawRequest, DrawResponse](httpClient, baseURL+ProcedureGetDraw, opts...),
		recordResult:    connect.NewClient[RecordResultRequest, RecordResultResponse](httpClient, baseURL+ProcedureRecordResult, opts...),
		listResults:     connect.NewClient[ListResultsRequest, ListResultsResponse](httpClient, baseURL+ProcedureListResults, opts...),
		computeRankings: connect.NewClient[ComputeRankingsRequest, ComputeRankingsResponse](httpClient, baseURL+ProcedureComputeRankings, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) CreateEvent(ctx context.Context, req *CreateEventRequest) (*EventResponse, error) {
	return call(ctx, c.createEvent, req)
}

func (c *Client) GetEvent(ctx context.Context, req *GetEventRequest) (*EventResponse, error) {
	return call(ctx, c.getEvent, req)
}

func (c *Client) TransitionEvent(ctx context.Context, req *TransitionEventRequest) (*EventResponse, error) {
	return call(ctx, c.transitionEvent, req)
}

func (c *Client) RegisterRsvp(ctx context.Context, req *RegisterRsvpRequest) (*RSVPResponse, error) {
	return call(ctx, c.registerRsvp, req)
}

func (c *Client) CancelRsvp(ctx context.Context, req *CancelRsvpRequest) (*CancelRsvpResponse, error) {
	return call(ctx, c.cancelRsvp, req)
}

func (c *Client) DeclineRsvp(ctx context.Context, req *DeclineRsvpRequest) (*RSVPResponse, error) {
	return call(ctx, c.declineRsvp, req)
}

func (c *Client) ListRoster(ctx context.Context, req *ListRosterRequest) (*ListRosterResponse, error) {
	return call(ctx, c.listRoster, req)
}

func (c *Client) GenerateDraw(ctx context.Context, req *GenerateDrawRequest) (*DrawResponse, error) {
	return call(ctx, c.generateDraw, req)
}

func (c *Client) GetDraw(ctx context.Context, req *GetDrawRequest) (*DrawResponse, error) {
	return call(ctx, c.getDraw, req)
}

func (c *Client) RecordResult(ctx context.Context, req *RecordResultRequest) (*RecordResultResponse, error) {
	return call(ctx, c.recordResult, req)
}

func (c *Client) ListResults(ctx context.Context, req *ListResultsRequest) (*ListResultsResponse, error) {
	return call(ctx, c.listResults, req)
}

func (c *Client) ComputeRankings(ctx context.Context, req *ComputeRankingsRequest) (*ComputeRankingsResponse, error) {
	return call(ctx, c.computeRankings, req)
}
