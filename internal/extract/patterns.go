package extract

import (
	"regexp"

	"github.com/wildanal2/ocr-ecosteps/constants"
)

// stepPattern is one textual fallback for the step count. Patterns run in
// order per vendor, most specific first, and terminate at the first match;
// group 1 is normalized with NormalizeNumber either way.
type stepPattern struct {
	re          *regexp.Regexp
	group       int
	notAfterRun *regexp.Regexp // optional: reject matches preceded by this (RE2 has no lookbehind)
}

var slashByte = regexp.MustCompile(`/\s*$`)

var stepPatterns = map[constants.AppClass][]stepPattern{
	constants.AppleHealth: {
		// "Today Today 10.818" or "Today 10,818"
		{re: regexp.MustCompile(`(?i)Today\s+(?:Today\s+)?(\d{1,2}[.,]\d{3})`), group: 1},
		// "TOTAL 12.515 steps"
		{re: regexp.MustCompile(`(?i)(?:TOTAL)\s+(\d{1,2}[.,]\d{3})\s*steps`), group: 1},
		// "401steps" (no space)
		{re: regexp.MustCompile(`(?i)(\d{3,5})steps`), group: 1},
		// Indonesian locale
		{re: regexp.MustCompile(`(?i)(\d+)\s*langkah`), group: 1},
		{re: regexp.MustCompile(`(?is)Step Count.*?Today\s+Today\s+(\d{3,5})`), group: 1},
		{re: regexp.MustCompile(`(?i)Hari Ini\s+(\d{3,5})`), group: 1},
		// "Today 736" without a separator
		{re: regexp.MustCompile(`(?i)Today\s+(?:Today\s+)?(\d{3,5})\b`), group: 1},
	},
	constants.GoogleFit: {
		// "16.828 Poin Kardio" or "827 CHeart Pts" (recurring OCR garbles)
		{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]?\d{0,3})\s*(?:CHeart Pts|GHeart Pts|Heart Pts|Poin Kardio|Kcart Pis)`), group: 1},
		// "Langkah 16,828" or "ASteps 1,602"
		{re: regexp.MustCompile(`(?i)(?:Langkah|ASteps)\s+(\d{1,2}[.,]\d{3})`), group: 1},
	},
	constants.HuaweiHealth: {
		// "395 /10.000 steps" - the count sits BEFORE the goal slash
		{re: regexp.MustCompile(`(?i)(\d{1,5})\s*/\s*\d+[.,]?\d*\s*steps`), group: 1},
		// "Today's steps 3011/10,000"
		{re: regexp.MustCompile(`(?i)today'?s steps\s*(\d{1,5})\s*/`), group: 1},
		// "Steps ... 8,376" - prefer numbers after the Steps keyword
		{re: regexp.MustCompile(`(?is)Steps.*?(\d{1,2}[.,]\d{3})`), group: 1},
		{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]\d{3})\s*steps`), group: 1},
	},
	constants.SamsungHealth: {
		// "3,139 steps" - but never the goal after a slash
		{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]\d{3})\s*steps`), group: 1, notAfterRun: slashByte},
		{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]\d{3})\s*langkah`), group: 1},
		{re: regexp.MustCompile(`(?is)Steps.*?(\d{1,2}[.,]\d{3})`), group: 1},
		// "7.492 Ingkh" - OCR misread of "langkah"
		{re: regexp.MustCompile(`(?i)(\d[.,]\d{3})\s*Ingkh`), group: 1},
		{re: regexp.MustCompile(`(?i)aktivitas\s+(\d[.,]\d{3})`), group: 1},
	},
	constants.Fitbit: {
		// "Today 11,820 Steps"
		{re: regexp.MustCompile(`(?i)Today\s+(\d{1,2}[.,]\d{3})\s*Steps`), group: 1},
		{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]\d{3})\s*steps`), group: 1},
		{re: regexp.MustCompile(`(?i)(\d{3,5})\s*steps`), group: 1},
	},
	constants.GarminConnect: {
		// "10,514 101% of goal"
		{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]\d{3})\s*\d{1,3}\s*%\s*of goal`), group: 1},
		{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]\d{3})\s*steps`), group: 1},
		{re: regexp.MustCompile(`(?i)(\d{3,5})\s*steps`), group: 1},
	},
}

// genericStepPatterns is the vendor-agnostic last resort.
var genericStepPatterns = []stepPattern{
	{re: regexp.MustCompile(`(?i)(\d{1,2}[.,]\d{3})\s*(?:steps|langkah)`), group: 1},
	{re: regexp.MustCompile(`(?i)(\d{3,5})\s*(?:steps|langkah)`), group: 1},
}

// stepsByPattern is extraction stage 2: ordered vendor regexes over the
// flattened text, then the generic fallback.
func stepsByPattern(text string, label constants.AppClass) (int, bool) {
	if v, ok := applyPatterns(text, stepPatterns[label]); ok {
		return v, true
	}
	return applyPatterns(text, genericStepPatterns)
}

func applyPatterns(text string, patterns []stepPattern) (int, bool) {
	for _, p := range patterns {
		span, ok := p.find(text)
		if !ok {
			continue
		}
		if v, err := NormalizeNumber(span); err == nil {
			return v, true
		}
	}
	return 0, false
}

func (p stepPattern) find(text string) (string, bool) {
	if p.notAfterRun == nil {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return m[p.group], true
	}

	// Scan all matches and drop those whose preceding text ends with the
	// rejected run (e.g. a goal value after "/").
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		gs, ge := loc[2*p.group], loc[2*p.group+1]
		if gs < 0 {
			continue
		}
		if p.notAfterRun.MatchString(text[:loc[0]]) {
			continue
		}
		return text[gs:ge], true
	}
	return "", false
}
