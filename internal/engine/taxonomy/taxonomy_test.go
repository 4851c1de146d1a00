package taxonomy

import (
	"strings"
	"testing"

	"github.com/crimson-sun/botsight/internal/model"
)

func TestDefaultLabelsEveryKind(t *testing.T) {
	tax := Default()
	for _, k := range model.Kinds {
		l := tax.Label(k)
		if !strings.HasPrefix(l, "MBFEvent.") {
			t.Errorf("Label(%q) = %q, want MBFEvent.* prefix", k, l)
		}
	}
	if got := tax.Label(model.KindMessageReceived); got != "MBFEvent.UserMessage" {
		t.Errorf("message-received = %q", got)
	}
}

func TestLegacyLabels(t *testing.T) {
	tests := map[model.EventKind]string{
		model.KindMessageReceived:    "message.received",
		model.KindMessageSent:        "message.send",
		model.KindIntentDialog:       "message.intent.dialog",
		model.KindSentiment:          "message.sentiment",
		model.KindConversationUpdate: "message.conversation.updated",
		model.KindConversationEnded:  "message.conversation.ended",
		model.KindOther:              "message.other",
	}
	for kind, want := range tests {
		if got := Legacy().Label(kind); got != want {
			t.Errorf("Label(%q) = %q, want %q", kind, got, want)
		}
	}
}

func TestUnknownKindFallsBackToOther(t *testing.T) {
	if got := Default().Label("bogus"); got != "MBFEvent.Other" {
		t.Errorf("got %q", got)
	}
}

func TestLabelsUnique(t *testing.T) {
	for _, tax := range []*Taxonomy{Default(), Legacy()} {
		seen := map[string]bool{}
		for _, l := range tax.Labels() {
			if seen[l] {
				t.Errorf("%s: duplicate label %q", tax.Name(), l)
			}
			seen[l] = true
		}
		if len(seen) != len(model.Kinds) {
			t.Errorf("%s: %d labels, want %d", tax.Name(), len(seen), len(model.Kinds))
		}
	}
}

func TestNewRejectsMissingKind(t *testing.T) {
	_, err := New("partial", map[model.EventKind]string{model.KindOther: "x"})
	if err == nil {
		t.Fatal("expected error for incomplete label set")
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "mbf", "MBF", " default "} {
		tax, err := ByName(name)
		if err != nil || tax != Default() {
			t.Errorf("ByName(%q) = %v, %v", name, tax, err)
		}
	}
	if tax, err := ByName("legacy"); err != nil || tax != Legacy() {
		t.Errorf("ByName(legacy) = %v, %v", tax, err)
	}
	if _, err := ByName("nope"); err == nil {
		t.Error("expected error")
	}
}
