// Package scenario replays a scripted conversation from a YAML file.
package scenario

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/botsight/internal/connector"
	"github.com/crimson-sun/botsight/internal/model"
)

// Defaults fill fields that individual steps leave empty.
type Defaults struct {
	ChannelID    string               `yaml:"channelId"`
	Conversation string               `yaml:"conversation"`
	User         model.ChannelAccount `yaml:"user"`
	Bot          model.ChannelAccount `yaml:"bot"`
	// Start and Interval synthesize timestamps for steps that carry none.
	Start    *time.Time    `yaml:"start"`
	Interval time.Duration `yaml:"interval"`
}

// Scenario is a parsed scenario file.
type Scenario struct {
	Name     string           `yaml:"name"`
	Defaults Defaults         `yaml:"defaults"`
	Steps    []connector.Step `yaml:"steps"`
}

// Connector streams the steps of a Scenario in order.
type Connector struct {
	scenario *Scenario
}

// New returns a connector over an already-parsed scenario.
func New(s *Scenario) *Connector {
	return &Connector{scenario: s}
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a scenario and applies its defaults to every step.
// Unknown fields are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("scenario: read: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return &s, nil
		}
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}
	for i := range s.Steps {
		if err := s.prepare(i); err != nil {
			return nil, fmt.Errorf("scenario: step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

func (s *Scenario) prepare(i int) error {
	step := &s.Steps[i]
	kind, err := connector.ParseStepKind(string(step.Kind))
	if err != nil {
		return err
	}
	step.Kind = kind
	if step.Activity == nil {
		step.Activity = &model.Activity{}
	}

	a := step.Activity
	d := s.Defaults
	if a.Type == "" {
		a.Type = model.ActivityMessage
	}
	if a.ChannelID == "" {
		a.ChannelID = d.ChannelID
	}
	if a.Conversation.ID == "" {
		a.Conversation.ID = d.Conversation
	}
	if a.From.ID == "" && a.From.Name == "" {
		if a.IsReply() {
			a.From = d.Bot
		} else {
			a.From = d.User
		}
	}
	if a.Timestamp == nil && d.Start != nil {
		ts := d.Start.Add(time.Duration(i) * d.Interval)
		a.Timestamp = &ts
	}
	return step.Validate()
}

// Stream sends every step and closes the channel. It stops early when ctx
// is cancelled.
func (c *Connector) Stream(ctx context.Context) (<-chan connector.Step, error) {
	ch := make(chan connector.Step)
	steps := c.scenario.Steps
	go func() {
		defer close(ch)
		for _, step := range steps {
			select {
			case ch <- step:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
