package gamedto

// Error codes carried on directed error/ack events.
const (
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeRoomFull         = "ROOM_FULL"
	CodeNotAParticipant  = "NOT_A_PARTICIPANT"
	CodeNotYourTurn      = "NOT_YOUR_TURN"
	CodeIllegalMove      = "ILLEGAL_MOVE"
	CodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	CodeInternal         = "INTERNAL"
)

type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "game service error"
}
