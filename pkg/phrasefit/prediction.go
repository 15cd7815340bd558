package phrasefit

// Prediction is the classification of one phrase.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Prediction struct {
	Text          string          `json:"text"`
	Label         int             `json:"label"`         // predicted target
	Probability   float64         `json:"probability"`   // probability of Label
	Probabilities map[int]float64 `json:"probabilities"` // every class seen in training
}
