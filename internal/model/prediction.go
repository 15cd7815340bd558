package model

// Prediction is the classification of a single phrase.
type Prediction struct {
	Text          string          `json:"text"`
	Label         int             `json:"label"`
	Probability   float64         `json:"probability"` // probability of Label
	Probabilities map[int]float64 `json:"probabilities,omitempty"`
}
