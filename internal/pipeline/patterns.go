package pipeline

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

type patternTables struct {
	PhonePatterns    []string `yaml:"phone_patterns"`
	PositionPatterns []string `yaml:"position_patterns"`
	CategoryKeywords []string `yaml:"category_keywords"`
}

// PatternExtractor matches phone numbers, job positions, and business
// categories against static tables. All matching is case-insensitive
// and side-effect free.
type PatternExtractor struct {
	phones     []*regexp.Regexp
	positions  []*regexp.Regexp
	categories []string
}

// nonPhoneChars strips everything but digits, dashes, and plus signs.
var nonPhoneChars = regexp.MustCompile(`[^\d\-\+]`)

// NewPatternExtractor compiles the embedded tables. It only errors when
// the embedded YAML or a pattern is malformed.
func NewPatternExtractor() (*PatternExtractor, error) {
	var tables patternTables
	if err := yaml.Unmarshal(patternsYAML, &tables); err != nil {
		return nil, eris.Wrap(err, "patterns: parse tables")
	}

	e := &PatternExtractor{categories: tables.CategoryKeywords}
	for _, p := range tables.PhonePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, eris.Wrapf(err, "patterns: compile phone pattern %q", p)
		}
		e.phones = append(e.phones, re)
	}
	for _, p := range tables.PositionPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, eris.Wrapf(err, "patterns: compile position pattern %q", p)
		}
		e.positions = append(e.positions, re)
	}
	return e, nil
}

// ExtractPhones returns phone numbers found in text, cleaned to digits,
// dashes, and plus signs. Candidates shorter than 10 characters after
// cleaning are discarded. Order follows pattern-table order with
// first-seen dedup.
func (e *PatternExtractor) ExtractPhones(text string) []string {
	var phones []string
	seen := make(map[string]bool)

	for _, re := range e.phones {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			// Phone patterns must capture the number in group 1; a
			// group-less entry matches nothing rather than panicking.
			if len(m) < 2 {
				continue
			}
			cleaned := nonPhoneChars.ReplaceAllString(m[1], "")
			if len(cleaned) < 10 {
				continue
			}
			if !seen[cleaned] {
				seen[cleaned] = true
				phones = append(phones, cleaned)
			}
		}
	}
	return phones
}

// ExtractPositions returns job position keywords found in text, in
// pattern-table order, deduplicated.
func (e *PatternExtractor) ExtractPositions(text string) []string {
	var positions []string
	seen := make(map[string]bool)

	for _, re := range e.positions {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				positions = append(positions, m)
			}
		}
	}
	return positions
}

// ExtractCategories returns the category keywords present in text as
// case-insensitive substrings, in vocabulary order.
func (e *PatternExtractor) ExtractCategories(text string) []string {
	lower := strings.ToLower(text)

	var categories []string
	for _, kw := range e.categories {
		if strings.Contains(lower, strings.ToLower(kw)) {
			categories = append(categories, kw)
		}
	}
	return categories
}
