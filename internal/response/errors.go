package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrAdminAccessOnly    ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Survey lifecycle ──────────────────────────────────────────────
	ErrSurveyNotDraft     ErrCode = "SURVEY_NOT_DRAFT"
	ErrSurveyNotPublished ErrCode = "SURVEY_NOT_PUBLISHED"
	ErrNotSurveyAuthor    ErrCode = "NOT_SURVEY_AUTHOR"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrFlowInvalid        ErrCode = "FLOW_INVALID"

	// ─── Branching rules ───────────────────────────────────────────────
	ErrSelfReference      ErrCode = "SELF_REFERENCE"
	ErrTargetNotFound     ErrCode = "TARGET_NOT_FOUND"
	ErrRuleNotFound       ErrCode = "RULE_NOT_FOUND"
	ErrSourceNotBranching ErrCode = "SOURCE_NOT_BRANCHABLE"
	ErrConditionMismatch  ErrCode = "CONDITION_MISMATCH"
	ErrValueNotOption     ErrCode = "VALUE_NOT_OPTION"
	ErrBadExpression      ErrCode = "BAD_EXPRESSION"

	// ─── Survey taking ─────────────────────────────────────────────────
	ErrAnswerOutOfRange ErrCode = "ANSWER_OUT_OF_RANGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Survey lifecycle ──────────────────────────────────────────────
	case ErrSurveyNotDraft:
		return "This survey is not in DRAFT status."
	case ErrSurveyNotPublished:
		return "This survey has not been published."
	case ErrNotSurveyAuthor:
		return "You are not the author of this survey."
	case ErrNoQuestions:
		return "This survey has no questions."
	case ErrFlowInvalid:
		return "The question flow has structural problems and cannot be published."

	// ─── Branching rules ───────────────────────────────────────────────
	case ErrSelfReference:
		return "A branching rule cannot target its own source question."
	case ErrTargetNotFound:
		return "The target question does not exist in this survey."
	case ErrRuleNotFound:
		return "No branching rule exists for that source and target."
	case ErrSourceNotBranching:
		return "Only single-choice and rating questions support per-value branching."
	case ErrConditionMismatch:
		return "The condition operator and value do not match the question type."
	case ErrValueNotOption:
		return "A condition value does not match any option of the source question."
	case ErrBadExpression:
		return "The condition expression is not a valid boolean expression."

	// ─── Survey taking ─────────────────────────────────────────────────
	case ErrAnswerOutOfRange:
		return "The answer value is outside the accepted range for this question."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
