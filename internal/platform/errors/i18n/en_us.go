package i18n

// Message codes must match internal/platform/errors codes and the workflow
// outcome codes. They are duplicated as strings to avoid an import cycle.
const (
	CodeUserIDRequired            = "USER_ID_REQUIRED"
	CodeCommunityIDRequired       = "COMMUNITY_ID_REQUIRED"
	CodeRequestIDRequired         = "REQUEST_ID_REQUIRED"
	CodeFilterInvalid             = "FILTER_INVALID"
	CodeAuthUnauthenticated       = "AUTH_UNAUTHENTICATED"
	CodeAuthGrantInvalid          = "AUTH_GRANT_INVALID"
	CodeAuthGrantExpired          = "AUTH_GRANT_EXPIRED"
	CodeConnectCodeSpaceExhausted = "CONNECT_CODE_SPACE_EXHAUSTED"
	CodeRequestNotOwned           = "REQUEST_NOT_OWNED"
	CodeRequestNotPending         = "REQUEST_NOT_PENDING"
	CodeNotFound                  = "NOT_FOUND"

	CodeConnectCodeInvalid        = "CONNECT_CODE_INVALID"
	CodeConnectCodeNotFound       = "CONNECT_CODE_NOT_FOUND"
	CodeConnectSelfRejected       = "CONNECT_SELF_REJECTED"
	CodeConnectMemberRequired     = "CONNECT_MEMBERSHIP_REQUIRED"
	CodeConnectAlreadyPending     = "CONNECT_ALREADY_PENDING"
	CodeConnectAlreadyConnected   = "CONNECT_ALREADY_CONNECTED"
	CodeConnectPreviouslyRejected = "CONNECT_PREVIOUSLY_REJECTED"
	CodeConnectRequestCreated     = "CONNECT_REQUEST_CREATED"
)

// Authorization and state errors intentionally render generic text so an
// unauthorized caller learns nothing about internal state.
var enUS = map[string]string{
	CodeUserIDRequired:            "A user is required for this action.",
	CodeCommunityIDRequired:       "A community is required for this action.",
	CodeRequestIDRequired:         "A connection request is required for this action.",
	CodeFilterInvalid:             "The list filter could not be understood.",
	CodeAuthUnauthenticated:       "You must be signed in to do that.",
	CodeAuthGrantInvalid:          "Your session could not be verified.",
	CodeAuthGrantExpired:          "Your session has expired. Please sign in again.",
	CodeConnectCodeSpaceExhausted: "We could not create a connection code right now. Please try again later.",
	CodeRequestNotOwned:           "You cannot act on this request.",
	CodeRequestNotPending:         "This request has already been resolved.",
	CodeNotFound:                  "We could not find what you were looking for.",

	CodeConnectCodeInvalid:        "That connection code is not valid. Codes are 8 letters and numbers.",
	CodeConnectCodeNotFound:       "That connection code was not found. Ask your connection for a fresh code.",
	CodeConnectSelfRejected:       "You cannot connect with yourself.",
	CodeConnectMemberRequired:     "You must join this community before connecting.",
	CodeConnectAlreadyPending:     "Your connection request is already waiting for a response.",
	CodeConnectAlreadyConnected:   "You are already connected.",
	CodeConnectPreviouslyRejected: "This connection request was previously declined.",
	CodeConnectRequestCreated:     "Connection request sent.",
}

func init() {
	register("en-US", enUS)
}
