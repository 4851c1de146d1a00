package model

import "encoding/json"

// Intent is a recognized intent with its confidence.
type Intent struct {
	Intent string  `json:"intent" yaml:"intent"`
	Score  float64 `json:"score" yaml:"score"`
}

// Entity is one recognized entity.
type Entity struct {
	Entity string  `json:"entity" yaml:"entity"`
	Type   string  `json:"type" yaml:"type"`
	Score  float64 `json:"score" yaml:"score"`
	Role   string  `json:"role,omitempty" yaml:"role,omitempty"`
}

// IntentResult is an already-computed NLU recognition. TopScoringIntent is
// nil when nothing was recognized.
type IntentResult struct {
	Query            string   `json:"query,omitempty" yaml:"query,omitempty"`
	TopScoringIntent *Intent  `json:"topScoringIntent,omitempty" yaml:"topScoringIntent,omitempty"`
	Entities         []Entity `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// EntitiesJSON serializes the entity list. A nil list encodes as "[]".
func (r *IntentResult) EntitiesJSON() (string, error) {
	ents := r.Entities
	if ents == nil {
		ents = []Entity{}
	}
	b, err := json.Marshal(ents)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
