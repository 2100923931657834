package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 时间解析错误。
var (
	ParseNoTemporalPhrase = Definition{Code: "PARSE_NO_TEMPORAL_PHRASE", Message: "No temporal phrase found"}
)

// 意图分类错误。
var (
	ClassificationAmbiguous = Definition{Code: "CLASSIFICATION_AMBIGUOUS", Message: "Utterance is ambiguous"}
	NeedsClarification      = Definition{Code: "NEEDS_CLARIFICATION", Message: "Needs clarification"}
)

// 外部协作方错误。
var (
	CollaboratorTransient   = Definition{Code: "COLLABORATOR_TRANSIENT", Message: "Collaborator temporarily unavailable"}
	CollaboratorFatal       = Definition{Code: "COLLABORATOR_FATAL", Message: "Collaborator rejected the request"}
	CollaboratorUnavailable = Definition{Code: "COLLABORATOR_UNAVAILABLE", Message: "Collaborator not configured"}
)

// 提醒模块错误。
var (
	DeliveryFailed       = Definition{Code: "DELIVERY_FAILED", Message: "Reminder delivery failed"}
	ReminderNotFound     = Definition{Code: "REMINDER_NOT_FOUND", Message: "Reminder not found"}
	ReminderNotPending   = Definition{Code: "REMINDER_NOT_PENDING", Message: "Reminder is not pending"}
	ReminderLimitReached = Definition{Code: "REMINDER_LIMIT_REACHED", Message: "Reminder limit reached"}
)

// 笔记/待办模块错误。
var (
	TodoNotFound = Definition{Code: "TODO_NOT_FOUND", Message: "Todo not found"}
)

// 通用请求错误。
var (
	InvalidRequest = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	ParseNoTemporalPhrase.Code:   ParseNoTemporalPhrase,
	ClassificationAmbiguous.Code: ClassificationAmbiguous,
	NeedsClarification.Code:      NeedsClarification,
	CollaboratorTransient.Code:   CollaboratorTransient,
	CollaboratorFatal.Code:       CollaboratorFatal,
	CollaboratorUnavailable.Code: CollaboratorUnavailable,
	DeliveryFailed.Code:          DeliveryFailed,
	ReminderNotFound.Code:        ReminderNotFound,
	ReminderNotPending.Code:      ReminderNotPending,
	ReminderLimitReached.Code:    ReminderLimitReached,
	TodoNotFound.Code:            TodoNotFound,
	InvalidRequest.Code:          InvalidRequest,
}

// Get 根据错误码返回 Definition，若不存在则返回兜底 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// IsTransient 判断错误是否属于可重试的临时错误。
func IsTransient(err error) bool {
	def, ok := err.(Definition)
	return ok && def.Code == CollaboratorTransient.Code
}
