package model

// Record is one labeled row of the training dataset.
type Record struct {
	Phrase string
	Target int
}

// Phrases returns the phrase column of records, in order.
func Phrases(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Phrase
	}
	return out
}

// Targets returns the target column of records, in order.
func Targets(records []Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Target
	}
	return out
}
