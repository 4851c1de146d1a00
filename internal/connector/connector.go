package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/botsight/internal/model"
)

// StepKind selects which tracking operation a Step is dispatched to.
type StepKind string

const (
	StepActivity StepKind = "activity"
	StepIntent   StepKind = "intent"
	StepQnA      StepKind = "qna"
	StepCustom   StepKind = "custom"
	StepGoal     StepKind = "goal"
)

// ParseStepKind validates a step kind name. Empty means StepActivity.
func ParseStepKind(s string) (StepKind, error) {
	switch k := StepKind(s); k {
	case "":
		return StepActivity, nil
	case StepActivity, StepIntent, StepQnA, StepCustom, StepGoal:
		return k, nil
	default:
		return "", fmt.Errorf("unknown step kind %q", s)
	}
}

// QnA is an already-computed knowledge base match.
type QnA struct {
	UserQuery  string  `json:"userQuery" yaml:"userQuery"`
	KBQuestion string  `json:"kbQuestion" yaml:"kbQuestion"`
	KBAnswer   string  `json:"kbAnswer" yaml:"kbAnswer"`
	Score      float64 `json:"score" yaml:"score"`
}

// Step is one unit of work produced by an activity source.
type Step struct {
	Kind       StepKind            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Activity   *model.Activity     `json:"activity,omitempty" yaml:"activity,omitempty"`
	Properties map[string]string   `json:"properties,omitempty" yaml:"properties,omitempty"`
	Metrics    map[string]float64  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Intent     *model.IntentResult `json:"intent,omitempty" yaml:"intent,omitempty"`
	QnA        *QnA                `json:"qna,omitempty" yaml:"qna,omitempty"`
	EventName  string              `json:"eventName,omitempty" yaml:"eventName,omitempty"`
	Goal       string              `json:"goal,omitempty" yaml:"goal,omitempty"`
}

var (
	errNoActivity = errors.New("step has no activity")
	errNoQnA      = errors.New("qna step has no qna result")
	errNoGoal     = errors.New("goal step has no goal name")
)

// Validate checks that the step carries what its kind needs. Intent steps
// without a result are valid and track nothing.
func (s Step) Validate() error {
	if _, err := ParseStepKind(string(s.Kind)); err != nil {
		return err
	}
	if s.Activity == nil {
		return errNoActivity
	}
	switch s.Kind {
	case StepQnA:
		if s.QnA == nil {
			return errNoQnA
		}
	case StepGoal:
		if s.Goal == "" {
			return errNoGoal
		}
	}
	return nil
}

// Connector defines the interface all activity sources implement.
type Connector interface {
	// Stream sends steps as they arrive. The channel is closed when the
	// source is exhausted or closed.
	Stream(ctx context.Context) (<-chan Step, error)
}
