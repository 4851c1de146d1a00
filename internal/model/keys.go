package model

// Property keys emitted by the event builder and the tracking operations.
const (
	KeyTimestamp      = "timestamp"
	KeyType           = "type"
	KeyChannel        = "channel"
	KeyUserID         = "userId"
	KeyUserName       = "userName"
	KeyText           = "text"
	KeyConversationID = "conversationId"

	KeyIntent   = "intent"
	KeyScore    = "score"
	KeyEntities = "entities"

	KeyUserQuery  = "userQuery"
	KeyKBQuestion = "kbQuestion"
	KeyKBAnswer   = "kbAnswer"

	KeyGoalName = "goalName"
)
