package errors

func (d Definition) Error() string {
	return d.Message
}

// Is 按错误码比较，使 errors.Is 能穿透 %w 包装
func (d Definition) Is(target error) bool {
	t, ok := target.(Definition)
	return ok && t.Code == d.Code
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	Unauthorized   = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	RateLimited    = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
	Internal       = Definition{Code: "INTERNAL_ERROR", Message: "Internal error"}
)

// 账户相关错误。
var (
	AccountNotFound    = Definition{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found"}
	UsernameTaken      = Definition{Code: "USERNAME_TAKEN", Message: "Username already taken"}
	EmailTaken         = Definition{Code: "EMAIL_TAKEN", Message: "Email already in use"}
	InvalidCredentials = Definition{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password"}
	IdentityFailed     = Definition{Code: "IDENTITY_FAILED", Message: "External login failed"}
)

// 积分账本错误。
var (
	InsufficientFunds = Definition{Code: "INSUFFICIENT_FUNDS", Message: "Not enough points"}
	InvalidAmount     = Definition{Code: "INVALID_AMOUNT", Message: "Amount must not be negative"}
)

// 商店与解锁错误。
var (
	FeatureNotFound      = Definition{Code: "FEATURE_NOT_FOUND", Message: "Feature not found"}
	AlreadyOwned         = Definition{Code: "ALREADY_OWNED", Message: "Feature already unlocked"}
	EmailRequired        = Definition{Code: "EMAIL_REQUIRED", Message: "An email address is required for this feature"}
	FeatureRequired      = Definition{Code: "FEATURE_REQUIRED", Message: "Feature must be unlocked first"}
	IncorrectAnswer      = Definition{Code: "INCORRECT_ANSWER", Message: "Incorrect answer"}
	ConverterTypeInvalid = Definition{Code: "CONVERTER_TYPE_INVALID", Message: "Unknown converter type"}
)

// Trivia 错误。
var (
	ProviderUnavailable = Definition{Code: "PROVIDER_UNAVAILABLE", Message: "Trivia provider unavailable"}
	DailyLimitReached   = Definition{Code: "DAILY_LIMIT_REACHED", Message: "Daily trivia limit reached"}
	NoPendingQuestion   = Definition{Code: "NO_PENDING_QUESTION", Message: "No pending trivia question"}
	AnswerInProgress    = Definition{Code: "ANSWER_IN_PROGRESS", Message: "Answer already being processed"}
)

// 任务与标签错误。
var (
	TaskNotFound   = Definition{Code: "TASK_NOT_FOUND", Message: "Task not found"}
	TagNotFound    = Definition{Code: "TAG_NOT_FOUND", Message: "Tag not found"}
	TagExists      = Definition{Code: "TAG_EXISTS", Message: "Tag already exists"}
	TaskCompleted  = Definition{Code: "TASK_COMPLETED", Message: "Completed tasks cannot be edited"}
	DispatchFailed = Definition{Code: "DISPATCH_FAILED", Message: "Notification dispatch failed"}
)

// 博客错误。
var (
	PostNotFound = Definition{Code: "POST_NOT_FOUND", Message: "Post not found"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{}

func init() {
	for _, def := range []Definition{
		InvalidRequest, Unauthorized, RateLimited, Internal,
		AccountNotFound, UsernameTaken, EmailTaken, InvalidCredentials, IdentityFailed,
		InsufficientFunds, InvalidAmount,
		FeatureNotFound, AlreadyOwned, EmailRequired, FeatureRequired, IncorrectAnswer, ConverterTypeInvalid,
		ProviderUnavailable, DailyLimitReached, NoPendingQuestion, AnswerInProgress,
		TaskNotFound, TagNotFound, TagExists, TaskCompleted, DispatchFailed,
		PostNotFound,
	} {
		Lookup[def.Code] = def
	}
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
