package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/crimson-sun/botsight/internal/connector"
	"github.com/crimson-sun/botsight/internal/metrics"
	"github.com/crimson-sun/botsight/internal/model"
)

// --- mocks ---

// mockConnector is a minimal connector that sends pre-loaded steps.
type mockConnector struct {
	steps []connector.Step
	err   error
}

func (m *mockConnector) Stream(_ context.Context) (<-chan connector.Step, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan connector.Step, len(m.steps))
	for _, s := range m.steps {
		ch <- s
	}
	close(ch)
	return ch, nil
}

// openConnector never closes its channel.
type openConnector struct{ ch chan connector.Step }

func (o *openConnector) Stream(_ context.Context) (<-chan connector.Step, error) {
	return o.ch, nil
}

// mockTracker records one line per call and fails calls whose activity text
// matches failOn.
type mockTracker struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (m *mockTracker) record(a *model.Activity, call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Text != "" && a.Text == m.failOn {
		return fmt.Errorf("mock: cannot track %q", a.Text)
	}
	m.calls = append(m.calls, call)
	return nil
}

func (m *mockTracker) TrackActivity(_ context.Context, a *model.Activity, _ map[string]string) error {
	return m.record(a, "activity:"+a.Text)
}

func (m *mockTracker) TrackIntent(_ context.Context, a *model.Activity, r *model.IntentResult) error {
	name := ""
	if r != nil && r.TopScoringIntent != nil {
		name = r.TopScoringIntent.Intent
	}
	return m.record(a, "intent:"+name)
}

func (m *mockTracker) TrackQnA(_ context.Context, a *model.Activity, q, _, _ string, _ float64) error {
	return m.record(a, "qna:"+q)
}

func (m *mockTracker) TrackCustom(_ context.Context, a *model.Activity, name string, _ map[string]string, _ map[string]float64) error {
	return m.record(a, "custom:"+name)
}

func (m *mockTracker) TrackGoalTriggered(_ context.Context, a *model.Activity, goal string, _ map[string]string) error {
	return m.record(a, "goal:"+goal)
}

func (m *mockTracker) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func msg(text string) *model.Activity {
	return &model.Activity{Type: model.ActivityMessage, Text: text}
}

func sampleSteps() []connector.Step {
	return []connector.Step{
		{Kind: connector.StepActivity, Activity: msg("hello")},
		{Kind: connector.StepIntent, Activity: msg("wake me"), Intent: &model.IntentResult{TopScoringIntent: &model.Intent{Intent: "Alarm.Set", Score: 0.9}}},
		{Kind: connector.StepQnA, Activity: msg("snooze?"), QnA: &connector.QnA{UserQuery: "snooze?"}},
		{Kind: connector.StepCustom, Activity: msg(""), EventName: "Feedback"},
		{Kind: connector.StepGoal, Activity: msg(""), Goal: "AlarmCreated"},
	}
}

// --- tests ---

func TestRunDispatchesInOrder(t *testing.T) {
	tr := &mockTracker{}
	p := New(&mockConnector{steps: sampleSteps()}, tr)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []string{"activity:hello", "intent:Alarm.Set", "qna:snooze?", "custom:Feedback", "goal:AlarmCreated"}
	got := tr.Calls()
	if len(got) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunSkipsFailingSteps(t *testing.T) {
	m := metrics.New()
	tr := &mockTracker{failOn: "boom"}
	steps := []connector.Step{
		{Activity: msg("a")},
		{Activity: msg("boom")},
		{Kind: connector.StepGoal, Activity: msg("no goal")},
		{Activity: msg("b")},
	}
	p := New(&mockConnector{steps: steps}, tr, WithMetrics(m))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	got := tr.Calls()
	if len(got) != 2 || got[0] != "activity:a" || got[1] != "activity:b" {
		t.Fatalf("unexpected calls: %v", got)
	}

	n, err := testutil.GatherAndCount(m.Registry(), "botsight_steps_dispatched_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	// activity/ok, activity/error, goal/error
	if n != 3 {
		t.Fatalf("expected 3 step series, got %d", n)
	}
}

func TestRunConcurrentWorkers(t *testing.T) {
	var steps []connector.Step
	var want []string
	for i := 0; i < 50; i++ {
		text := fmt.Sprintf("m%02d", i)
		steps = append(steps, connector.Step{Activity: msg(text)})
		want = append(want, "activity:"+text)
	}
	tr := &mockTracker{}
	p := New(&mockConnector{steps: steps}, tr, WithWorkers(8))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	got := tr.Calls()
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunStreamError(t *testing.T) {
	p := New(&mockConnector{err: errors.New("no source")}, &mockTracker{})
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error from Stream")
	}
}

func TestRunContextCancel(t *testing.T) {
	conn := &openConnector{ch: make(chan connector.Step)}
	p := New(conn, &mockTracker{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	conn.ch <- connector.Step{Activity: msg("one")}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDispatchIntentWithoutResult(t *testing.T) {
	tr := &mockTracker{}
	err := Dispatch(context.Background(), tr, connector.Step{Kind: connector.StepIntent, Activity: msg("x")})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if got := tr.Calls(); len(got) != 1 || got[0] != "intent:" {
		t.Fatalf("unexpected calls: %v", got)
	}
}
