package classifier

import "github.com/crimson-sun/botsight/internal/model"

// Classify maps an activity to its event kind. The first matching rule wins:
// an inbound message is received, a reply is sent, then the two
// conversation lifecycle kinds; anything else is other.
func Classify(a *model.Activity) model.EventKind {
	switch a.Type {
	case model.ActivityMessage:
		if a.IsReply() {
			return model.KindMessageSent
		}
		return model.KindMessageReceived
	case model.ActivityConversationUpdate:
		return model.KindConversationUpdate
	case model.ActivityEndOfConversation:
		return model.KindConversationEnded
	default:
		return model.KindOther
	}
}
