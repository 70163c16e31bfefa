package errors

// Error codes are stable machine-readable identifiers. Clients map them to
// user-facing text; logs stay in English.

// Mission error codes.
const (
	CodeMissionNotFound      = "MISSION_NOT_FOUND"
	CodeMissionNotInProgress = "MISSION_NOT_IN_PROGRESS"
	CodeMissionNotCompleted  = "MISSION_NOT_COMPLETED"
	CodeRewardAlreadyClaimed = "REWARD_ALREADY_CLAIMED"
)

// Gamification error codes.
const (
	CodeAchievementNotFound = "ACHIEVEMENT_NOT_FOUND"
	CodeInvalidPoints       = "INVALID_POINTS"
)

// Persona error codes.
const (
	CodeFragmentRequired = "FRAGMENT_REQUIRED"
)

// Access error codes.
const (
	CodePlanNotFound           = "PLAN_NOT_FOUND"
	CodeInviteTokenNotFound    = "INVITE_TOKEN_NOT_FOUND"
	CodeInviteTokenUsed        = "INVITE_TOKEN_USED"
	CodeInviteTokenExpired     = "INVITE_TOKEN_EXPIRED"
	CodeSubscriptionActive     = "SUBSCRIPTION_ALREADY_ACTIVE"
	CodeNoActiveSubscription   = "NO_ACTIVE_SUBSCRIPTION"
	CodeInvalidDuration        = "INVALID_DURATION"
	CodeJoinRequestUnavailable = "JOIN_REQUEST_UNAVAILABLE"
)

// Interaction error codes.
const (
	CodeActorInCooldown    = "ACTOR_IN_COOLDOWN"
	CodeInvalidInteraction = "INVALID_INTERACTION"
)

// Auth error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeForbidden    = "FORBIDDEN"
)

// Generic error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)
