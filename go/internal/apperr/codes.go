package apperr

import "connectrpc.com/connect"

// ConnectCode maps a kind to the Connect status code returned to clients.
func (k Kind) ConnectCode() connect.Code {
	switch k {
	// InvalidArgument - malformed input
	case KindInvalidArgument:
		return connect.CodeInvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case KindInvalidTransition,
		KindEventClosed,
		KindInsufficientPlayers,
		KindInsufficientCourts:
		return connect.CodeFailedPrecondition

	case KindUnauthorized:
		return connect.CodePermissionDenied
	case KindDuplicateRSVP:
		return connect.CodeAlreadyExists
	case KindNotFound:
		return connect.CodeNotFound
	case KindConcurrentModification:
		return connect.CodeAborted
	case KindStoreUnavailable:
		return connect.CodeUnavailable

	default:
		return connect.CodeInternal
	}
}
