// Package classify maps recognized screenshot text onto the closed set of
// source-app labels using an ordered rule table. Vendor signatures overlap
// (Huawei step pages say "steps", Samsung screens say "Today"), so rule
// order is load-bearing: first match wins.
package classify

import (
	"regexp"
	"strings"

	"github.com/wildanal2/ocr-ecosteps/constants"
)

// Rule pairs a label with its match predicate over lowercased text.
type Rule struct {
	Label constants.AppClass
	Match func(text string) bool
}

var huaweiStepsRatio = regexp.MustCompile(`today'?s steps\s*\d+\s*/\s*\d`)
var huaweiStressBracket = regexp.MustCompile(`stress.*wake.*\(\d+\)|stress\s*\(\d+\).*wake`)

// rules is evaluated in order; do not reorder without fixture coverage.
var rules = []Rule{
	{
		Label: constants.Fitbit,
		Match: func(t string) bool { return strings.Contains(t, "fitbit") },
	},
	{
		Label: constants.SamsungHealth,
		Match: func(t string) bool {
			return containsAny(t,
				"samsung health",
				"daily activity",
				"aktivitas harian",
				"kebugaran",
				"together",
				"ingkh", // OCR misread of "langkah" on Samsung step cards
			)
		},
	},
	{
		Label: constants.GoogleFit,
		Match: func(t string) bool {
			return containsAny(t,
				"heart pts",
				"heart points",
				"move min",
				"poin kardio",
				"menit gerak",
			)
		},
	},
	{
		Label: constants.HuaweiHealth,
		Match: func(t string) bool {
			if containsAny(t, "huawei", "health+") {
				return true
			}
			if huaweiStressBracket.MatchString(t) {
				return true
			}
			if strings.Contains(t, "stress") && strings.Contains(t, "wake") {
				return true
			}
			// Step page shows "Today's steps NNN/10,000" next to the
			// completion ring and stress card.
			if huaweiStepsRatio.MatchString(t) && containsAny(t, "completion", "ring", "stress") {
				return true
			}
			return false
		},
	},
	{
		Label: constants.GarminConnect,
		Match: func(t string) bool {
			if strings.Contains(t, "garmin") {
				return true
			}
			return strings.Contains(t, "% of goal") && strings.Contains(t, "daily timeline")
		},
	},
}

// Classify returns the source-app label for flattened recognized text.
// A non-empty category hint short-circuits the rules (local/offline
// validation mode where the caller already knows the app).
func Classify(text, categoryHint string) constants.AppClass {
	if categoryHint != "" {
		if label, ok := constants.CanonicalizeAppClass(categoryHint); ok {
			return label
		}
		return constants.OtherApp
	}

	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.Match(lower) {
			return r.Label
		}
	}
	return constants.AppleHealth
}

// Rules exposes the ordered table for inspection in tests.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func containsAny(t string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
