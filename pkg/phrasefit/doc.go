// Package phrasefit classifies short phrases with a TF-IDF vectorizer and a
// logistic regression classifier trained by the phrasefit command.
//
// Quick start:
//
//	m, err := phrasefit.New(phrasefit.WithModelDir("homework"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, _ := m.Classify("great service")
//	fmt.Println(p.Label, p.Probability) // 1 0.83
//
// A Model is read-only after New and safe for concurrent use. Load once,
// reuse across requests.
package phrasefit
