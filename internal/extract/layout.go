package extract

import (
	"regexp"
	"strings"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/recognize"
)

// anchorRule locates a vendor-specific UI landmark in the fragment
// sequence and searches nearby fragments for a standalone step number.
type anchorRule struct {
	match     func(lower string) bool
	matchSeq  func(frags []recognize.Fragment, i int) bool // sequence-aware alternative to match
	window    int                                          // fragments searched on each side of the anchor
	minDigits int
	maxDigits int
}

// numericToken matches a fragment that is nothing but a step-count
// candidate: bare digits or digits with a thousands separator.
var numericToken = regexp.MustCompile(`^\(?(\d{1,2}[.,\s]\d{3}|\d{3,5})\)?$`)

var anchorRules = map[constants.AppClass][]anchorRule{
	constants.GoogleFit: {
		// The step number renders directly above the Heart Pts badge,
		// so it lands in an adjacent fragment. OCR garbles the badge
		// text in several recurring ways.
		{match: containsAnyOf("heart pts", "cheart", "gheart", "kcart pis", "poin kardio"), window: 5, minDigits: 3, maxDigits: 5},
	},
	constants.HuaweiHealth: {
		// Home screen stacks the step card between the stress and
		// sleep/wake cards.
		{match: containsAnyOf("stress", "wake"), window: 4, minDigits: 3, maxDigits: 5},
		{match: containsAnyOf("today's steps", "todays steps"), window: 3, minDigits: 3, maxDigits: 5},
	},
	constants.AppleHealth: {
		// The steps chart header reads "Today" twice (range selector
		// plus chart label); the count is the next standalone number.
		// The doubled token shows up merged into one fragment or split
		// across two adjacent ones depending on the engine.
		{matchSeq: doubleToday, window: 3, minDigits: 3, maxDigits: 5},
	},
	constants.GarminConnect: {
		{match: containsAnyOf("% of goal", "of goal"), window: 5, minDigits: 3, maxDigits: 5},
	},
}

// stepsByLayout is extraction stage 1: anchor the vendor landmark in the
// ordered fragment list, then take the nearest plausible numeric fragment
// within the rule's window. Ties between equal distances prefer the
// preceding fragment, matching how these apps place the count above or
// before the landmark.
func stepsByLayout(frags []recognize.Fragment, label constants.AppClass) (int, bool) {
	rules, ok := anchorRules[label]
	if !ok {
		return 0, false
	}

	for _, rule := range rules {
		for i, f := range frags {
			if rule.matchSeq != nil {
				if !rule.matchSeq(frags, i) {
					continue
				}
			} else if !rule.match(strings.ToLower(f.Text)) {
				continue
			}
			if v, ok := nearestNumeric(frags, i, rule); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func nearestNumeric(frags []recognize.Fragment, anchor int, rule anchorRule) (int, bool) {
	for d := 1; d <= rule.window; d++ {
		for _, idx := range []int{anchor - d, anchor + d} {
			if idx < 0 || idx >= len(frags) {
				continue
			}
			if v, ok := candidateValue(frags[idx].Text, rule); ok {
				return v, true
			}
		}
	}
	// OCR sometimes merges the landmark and the count into one line;
	// fall back to a numeric span inside the anchor fragment itself.
	return embeddedValue(frags[anchor].Text, rule)
}

var embeddedNumeric = regexp.MustCompile(`\d{1,2}[.,]\d{3}|\d{3,5}`)

func embeddedValue(text string, rule anchorRule) (int, bool) {
	for _, span := range embeddedNumeric.FindAllString(text, -1) {
		if n := digitCount(span); n < rule.minDigits || n > rule.maxDigits {
			continue
		}
		if v, err := NormalizeNumber(span); err == nil {
			return v, true
		}
	}
	return 0, false
}

func candidateValue(text string, rule anchorRule) (int, bool) {
	m := numericToken.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	span := m[1]
	if n := digitCount(span); n < rule.minDigits || n > rule.maxDigits {
		return 0, false
	}
	v, err := NormalizeNumber(span)
	if err != nil {
		return 0, false
	}
	return v, true
}

// doubleToday anchors at a fragment containing "today" twice, or at the
// second of two adjacent "today" fragments.
func doubleToday(frags []recognize.Fragment, i int) bool {
	cur := strings.ToLower(frags[i].Text)
	if strings.Count(cur, "today") >= 2 {
		return true
	}
	if i > 0 && strings.Contains(cur, "today") &&
		strings.Contains(strings.ToLower(frags[i-1].Text), "today") {
		return true
	}
	return false
}

func containsAnyOf(subs ...string) func(string) bool {
	return func(lower string) bool {
		for _, s := range subs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}
