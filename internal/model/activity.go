package model

import "time"

// ActivityType is the Bot Framework activity kind tag.
type ActivityType string

const (
	ActivityMessage               ActivityType = "message"
	ActivityConversationUpdate    ActivityType = "conversationUpdate"
	ActivityEndOfConversation     ActivityType = "endOfConversation"
	ActivityContactRelationUpdate ActivityType = "contactRelationUpdate"
	ActivityTyping                ActivityType = "typing"
	ActivityPing                  ActivityType = "ping"
)

// ChannelAccount identifies a participant on a channel.
type ChannelAccount struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ConversationAccount identifies a conversation.
type ConversationAccount struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
}

// Activity is one unit of conversational traffic. It is consumed read-only.
type Activity struct {
	Type         ActivityType        `json:"type" yaml:"type"`
	Timestamp    *time.Time          `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	ChannelID    string              `json:"channelId,omitempty" yaml:"channelId,omitempty"`
	From         ChannelAccount      `json:"from" yaml:"from,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty" yaml:"replyToId,omitempty"`
	Text         string              `json:"text,omitempty" yaml:"text,omitempty"`
	Conversation ConversationAccount `json:"conversation" yaml:"conversation,omitempty"`
}

// IsReply reports whether the activity was sent by the bot.
// An activity without a reply-to marker is inbound.
func (a *Activity) IsReply() bool {
	return a.ReplyToID != ""
}
