// Package api exposes the game night operations as Connect unary procedures
// with JSON payloads.
package api

const (
	EventServiceName       = "gamenight.v1.EventService"
	RSVPServiceName        = "gamenight.v1.RSVPService"
	DrawServiceName        = "gamenight.v1.DrawService"
	LeaderboardServiceName = "gamenight.v1.LeaderboardService"
)

const (
	ProcedureCreateEvent     = "/" + EventServiceName + "/CreateEvent"
	ProcedureGetEvent        = "/" + EventServiceName + "/GetEvent"
	ProcedureTransitionEvent = "/" + EventServiceName + "/TransitionEvent"

	ProcedureRegisterRsvp = "/" + RSVPServiceName + "/RegisterRsvp"
	ProcedureCancelRsvp   = "/" + RSVPServiceName + "/CancelRsvp"
	ProcedureDeclineRsvp  = "/" + RSVPServiceName + "/DeclineRsvp"
	ProcedureListRoster   = "/" + RSVPServiceName + "/ListRoster"

	ProcedureGenerateDraw = "/" + DrawServiceName + "/GenerateDraw"
	ProcedureGetDraw      = "/" + DrawServiceName + "/GetDraw"
	ProcedureRecordResult = "/" + DrawServiceName + "/RecordResult"
	ProcedureListResults  = "/" + DrawServiceName + "/ListResults"

	ProcedureComputeRankings = "/" + LeaderboardServiceName + "/ComputeRankings"
)
