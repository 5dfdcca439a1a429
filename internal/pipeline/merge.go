package pipeline

import "github.com/sells-group/mailsync/internal/model"

// Merge combines pattern and model extractions into one result. Phones
// and categories are order-preserving unions, pattern results first.
// For position the model's answer wins when present; otherwise the
// first pattern match is taken.
func Merge(patternPhones, patternPositions, patternCategories []string, mr ModelResult) model.Extraction {
	ex := model.Extraction{
		Phones:     union(patternPhones, mr.Phones),
		Categories: union(patternCategories, mr.Categories),
	}

	if mr.Position != "" {
		ex.Position = mr.Position
	} else if len(patternPositions) > 0 {
		ex.Position = patternPositions[0]
	}
	return ex
}

func union(a, b []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range a {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
