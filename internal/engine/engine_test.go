package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/crimson-sun/botsight/internal/engine/taxonomy"
	"github.com/crimson-sun/botsight/internal/model"
)

func inbound(text string) *model.Activity {
	ts := time.Date(2026, 2, 19, 12, 0, 0, 120000000, time.UTC)
	return &model.Activity{
		Type:         model.ActivityMessage,
		Timestamp:    &ts,
		ChannelID:    "emulator",
		From:         model.ChannelAccount{ID: "u1", Name: "Ada"},
		Text:         text,
		Conversation: model.ConversationAccount{ID: "c1"},
	}
}

func TestBuildInboundMessage(t *testing.T) {
	eng := New(nil, false)
	ev, err := eng.Build(inbound("hello world"))
	require.NoError(t, err)

	assert.Equal(t, model.KindMessageReceived, ev.Kind)
	assert.Equal(t, "MBFEvent.UserMessage", ev.Name)
	assert.Equal(t,
		[]string{"timestamp", "type", "channel", "userId", "userName", "text", "conversationId"},
		ev.Properties.Keys())

	ts, _ := ev.Properties.Get(model.KeyTimestamp)
	assert.Equal(t, "2026-02-19T12:00:00.12Z", ts)
	text, _ := ev.Properties.Get(model.KeyText)
	assert.Equal(t, "hello world", text)
}

func TestBuildOmitUsername(t *testing.T) {
	ev, err := New(nil, true).Build(inbound("hi"))
	require.NoError(t, err)

	_, ok := ev.Properties.Get(model.KeyUserName)
	assert.False(t, ok, "userName must not be emitted when omitted")
	id, ok := ev.Properties.Get(model.KeyUserID)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestBuildReply(t *testing.T) {
	a := inbound("pong")
	a.ReplyToID = "m1"
	ev, err := New(nil, false).Build(a)
	require.NoError(t, err)

	assert.Equal(t, model.KindMessageSent, ev.Kind)
	_, hasID := ev.Properties.Get(model.KeyUserID)
	_, hasName := ev.Properties.Get(model.KeyUserName)
	assert.False(t, hasID)
	assert.False(t, hasName)
	conv, _ := ev.Properties.Get(model.KeyConversationID)
	assert.Equal(t, "c1", conv)
}

func TestBuildWithoutTimestamp(t *testing.T) {
	ev, err := New(nil, false).Build(&model.Activity{Type: model.ActivityConversationUpdate, ChannelID: "slack"})
	require.NoError(t, err)

	assert.Equal(t, model.KindConversationUpdate, ev.Kind)
	assert.Equal(t, []string{"type", "channel"}, ev.Properties.Keys())
}

func TestBuildNilActivity(t *testing.T) {
	_, err := New(nil, false).Build(nil)
	assert.True(t, errors.Is(err, ErrNilActivity))
}

func TestBuildBaselineWins(t *testing.T) {
	ev, err := New(nil, false).Build(inbound("real"), map[string]string{
		"text":    "spoofed",
		"channel": "spoofed",
		"extra":   "kept",
	})
	require.NoError(t, err)

	text, _ := ev.Properties.Get(model.KeyText)
	channel, _ := ev.Properties.Get(model.KeyChannel)
	extra, _ := ev.Properties.Get("extra")
	assert.Equal(t, "real", text)
	assert.Equal(t, "emulator", channel)
	assert.Equal(t, "kept", extra)
}

func TestBuildEarlierLayerWins(t *testing.T) {
	ev, err := New(nil, false).Build(inbound("x"),
		map[string]string{"score": "60"},
		map[string]string{"score": "1", "foo": "bar"},
	)
	require.NoError(t, err)
	score, _ := ev.Properties.Get(model.KeyScore)
	assert.Equal(t, "60", score)
	foo, _ := ev.Properties.Get("foo")
	assert.Equal(t, "bar", foo)
}

func TestBuildWithMetricsCopies(t *testing.T) {
	m := map[string]float64{"latency": 1.5}
	ev, err := New(nil, false).BuildWithMetrics(inbound("x"), m)
	require.NoError(t, err)
	m["latency"] = 9
	assert.Equal(t, 1.5, ev.Metrics["latency"])
}

func TestRelabel(t *testing.T) {
	eng := New(taxonomy.Legacy(), false)
	ev, err := eng.Build(inbound("x"))
	require.NoError(t, err)

	qna := eng.Relabel(ev, model.KindQnA, "")
	assert.Equal(t, "message.qna", qna.Name)
	assert.Equal(t, model.KindQnA, qna.Kind)

	custom := eng.Relabel(ev, model.KindCustom, "AlarmSet")
	assert.Equal(t, "AlarmSet", custom.Name)
}

func genActivity(t *rapid.T) *model.Activity {
	a := &model.Activity{
		Type:         rapid.SampledFrom([]model.ActivityType{model.ActivityMessage, model.ActivityConversationUpdate, model.ActivityEndOfConversation, model.ActivityTyping}).Draw(t, "type"),
		ChannelID:    rapid.StringMatching(`[a-z]{0,6}`).Draw(t, "channel"),
		From:         model.ChannelAccount{ID: rapid.StringMatching(`u[0-9]{1,3}`).Draw(t, "from"), Name: rapid.String().Draw(t, "name")},
		ReplyToID:    rapid.SampledFrom([]string{"", "r1"}).Draw(t, "reply"),
		Text:         rapid.String().Draw(t, "text"),
		Conversation: model.ConversationAccount{ID: "c"},
	}
	if rapid.Bool().Draw(t, "hasTimestamp") {
		ts := time.Unix(rapid.Int64Range(0, 4e9).Draw(t, "ts"), 0)
		a.Timestamp = &ts
	}
	return a
}

func TestBuildProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genActivity(t)
		omit := rapid.Bool().Draw(t, "omit")
		extra := rapid.MapOf(rapid.SampledFrom([]string{"type", "channel", "text", "userId", "a", "b"}), rapid.String()).Draw(t, "extra")
		eng := New(nil, omit)

		ev1, err := eng.Build(a, extra)
		if err != nil {
			t.Fatal(err)
		}
		ev2, _ := eng.Build(a, extra)
		b1, _ := json.Marshal(ev1.Properties)
		b2, _ := json.Marshal(ev2.Properties)
		if string(b1) != string(b2) {
			t.Fatalf("non-deterministic build: %s vs %s", b1, b2)
		}

		if ev1.Name == "" {
			t.Fatal("empty name")
		}
		if typ, _ := ev1.Properties.Get(model.KeyType); typ != string(a.Type) {
			t.Fatalf("type = %q, want %q", typ, a.Type)
		}
		if ch, _ := ev1.Properties.Get(model.KeyChannel); ch != a.ChannelID {
			t.Fatalf("channel overwritten: %q", ch)
		}
		_, hasTS := ev1.Properties.Get(model.KeyTimestamp)
		if hasTS != (a.Timestamp != nil) {
			t.Fatalf("timestamp present = %v", hasTS)
		}

		_, hasID := ev1.Properties.Get(model.KeyUserID)
		_, hasName := ev1.Properties.Get(model.KeyUserName)
		switch {
		case a.Type == model.ActivityMessage && !a.IsReply():
			if ev1.Kind != model.KindMessageReceived || !hasID {
				t.Fatalf("inbound: kind=%q userId=%v", ev1.Kind, hasID)
			}
			if hasName == omit {
				t.Fatalf("userName present=%v with omit=%v", hasName, omit)
			}
			if id, _ := ev1.Properties.Get(model.KeyUserID); id != a.From.ID {
				t.Fatalf("userId overwritten: %q", id)
			}
		case a.Type == model.ActivityMessage:
			if ev1.Kind != model.KindMessageSent {
				t.Fatalf("reply kind = %q", ev1.Kind)
			}
			if hasName {
				t.Fatal("reply carries userName")
			}
		}
	})
}
