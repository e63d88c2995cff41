package trigger

import "strings"

// sentimentLexicon maps words to polarity weights in [-1,1]. The lists
// skew toward workplace chat vocabulary since that is what rules see.
var sentimentLexicon = map[string]float64{
	// Positive
	"good":       0.5,
	"great":      0.8,
	"excellent":  0.9,
	"wonderful":  0.9,
	"amazing":    0.8,
	"awesome":    0.8,
	"fantastic":  0.9,
	"perfect":    0.9,
	"nice":       0.5,
	"love":       0.7,
	"like":       0.3,
	"happy":      0.7,
	"glad":       0.6,
	"thanks":     0.5,
	"thank":      0.5,
	"appreciate": 0.6,
	"helpful":    0.6,
	"works":      0.3,
	"fixed":      0.4,
	"resolved":   0.4,
	"agree":      0.3,
	"correct":    0.4,
	"right":      0.3,
	"best":       0.7,
	"better":     0.4,
	"well":       0.3,
	"fine":       0.3,
	"smooth":     0.4,
	"clean":      0.3,
	"clear":      0.3,

	// Negative
	"bad":           -0.5,
	"terrible":      -0.9,
	"awful":         -0.9,
	"horrible":      -0.9,
	"unacceptable":  -0.8,
	"disappointing": -0.7,
	"disappointed":  -0.7,
	"poor":          -0.5,
	"worst":         -0.9,
	"worse":         -0.5,
	"hate":          -0.8,
	"angry":         -0.7,
	"furious":       -0.9,
	"annoying":      -0.6,
	"annoyed":       -0.6,
	"frustrating":   -0.7,
	"frustrated":    -0.7,
	"broken":        -0.5,
	"fail":          -0.6,
	"failed":        -0.6,
	"failure":       -0.6,
	"bug":           -0.3,
	"wrong":         -0.5,
	"problem":       -0.4,
	"issue":         -0.3,
	"error":         -0.4,
	"slow":          -0.4,
	"useless":       -0.8,
	"stupid":        -0.8,
	"ridiculous":    -0.7,
	"unhappy":       -0.6,
	"sorry":         -0.3,
	"blocked":       -0.4,
	"urgent":        -0.3,
	"critical":      -0.4,
	"crash":         -0.5,
	"crashed":       -0.5,
}

// negators flip the polarity of the following sentiment word.
var negators = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"nobody":  true,
	"none":    true,
	"cannot":  true,
	"can't":   true,
	"won't":   true,
	"don't":   true,
	"doesn't": true,
	"didn't":  true,
	"isn't":   true,
	"wasn't":  true,
	"aren't":  true,
}

// intensifiers scale the polarity of the following sentiment word.
var intensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.3,
	"so":         1.2,
	"extremely":  1.5,
	"absolutely": 1.5,
	"totally":    1.4,
	"completely": 1.4,
	"incredibly": 1.5,
	"quite":      1.1,
	"highly":     1.3,
}

// AnalyzeSentiment scores the polarity of text in [-1,1]. Zero means
// neutral or no recognized sentiment words. Negation within the two
// preceding tokens flips a word's polarity, intensifiers scale it, and
// repeated exclamation marks amplify the overall magnitude.
func AnalyzeSentiment(text string) float64 {
	exclamations := strings.Count(text, "!")

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0.0
	}

	var sum float64
	var scored int

	for i, tok := range tokens {
		weight, ok := sentimentLexicon[tok]
		if !ok {
			continue
		}

		if i > 0 {
			if factor, ok := intensifiers[tokens[i-1]]; ok {
				weight *= factor
			}
		}

		for j := max(0, i-2); j < i; j++ {
			if negators[tokens[j]] {
				weight = -weight * 0.8
				break
			}
		}

		sum += weight
		scored++
	}

	if scored == 0 {
		return 0.0
	}

	polarity := sum / float64(scored)

	if exclamations > 1 {
		boost := 1.0 + 0.1*float64(min(exclamations, 4))
		polarity *= boost
	}

	return clamp(polarity, -1.0, 1.0)
}

func tokenize(text string) []string {
	lowered := strings.ToLower(text)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'' {
			return false
		}
		return true
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
