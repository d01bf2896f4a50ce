package extract

import (
	"fmt"
	"regexp"
	"strconv"
)

// Secondary fields are extracted vendor-independently from the flattened
// text. Each regex is applied once; a miss leaves the field unset.
var (
	reDate     = regexp.MustCompile(`(\d{1,2})\s+(\w+)\s+(\d{4})\s+at\s+(\d{1,2}\.\d{2})`)
	reDistance = regexp.MustCompile(`(\d+[,.]\d+)\s*km`)
	reDuration = regexp.MustCompile(`(\d{2}):(\d{2,3})[:.](\d{2})`)
	reCalories = regexp.MustCompile(`(?i)(\d+)\s*(?:ca|kcal)`)
	rePace     = regexp.MustCompile(`(\d+)'(\d+)"`)
	reCadence  = regexp.MustCompile(`(?i)(\d{2,3})\s*(?:deeps|steps)/min`)
	reStride   = regexp.MustCompile(`(\d+)\s*cm`)
	reHeart    = regexp.MustCompile(`(?i)(\d{2,3})\s*bpm`)
)

// secondaryFields fills everything except Steps. Distance keeps its
// original separator: it's a decimal point there, not a thousands mark.
func secondaryFields(text string, r *Result) {
	if m := reDate.FindStringSubmatch(text); m != nil {
		r.Date = strPtr(fmt.Sprintf("%s %s %s at %s", m[1], m[2], m[3], m[4]))
	}

	if m := reDistance.FindStringSubmatch(text); m != nil {
		r.Distance = strPtr(m[1] + " km")
	}

	if m := reDuration.FindStringSubmatch(text); m != nil {
		r.Duration = strPtr(fixDuration(m[1], m[2], m[3]))
	}

	if m := reCalories.FindStringSubmatch(text); m != nil {
		r.TotalCalories = strPtr(m[1] + " kcal")
	}

	if m := rePace.FindStringSubmatch(text); m != nil {
		r.AvgPace = strPtr(fmt.Sprintf("%s'%s\" /km", m[1], m[2]))
	}

	// First km value is the distance; a second one is the speed.
	if speeds := reDistance.FindAllStringSubmatch(text, -1); len(speeds) > 1 {
		r.AvgSpeed = strPtr(speeds[1][1] + " km/h")
	}

	if m := reCadence.FindStringSubmatch(text); m != nil {
		r.AvgCadence = strPtr(fixCadence(m[1]) + " steps/min")
	}

	if m := reStride.FindStringSubmatch(text); m != nil {
		r.AvgStride = strPtr(m[1] + " cm")
	}

	if m := reHeart.FindStringSubmatch(text); m != nil {
		r.AvgHeartRate = strPtr(m[1] + " bpm")
	}
}

// fixDuration repairs a recurring OCR artifact where the minutes column
// picks up a leading 1 (e.g. "01:119:23"): a 3-digit minute value over 59
// starting with 1 drops the first digit.
func fixDuration(h, m, s string) string {
	if len(m) == 3 && m[0] == '1' {
		if v, err := strconv.Atoi(m); err == nil && v > 59 {
			m = m[1:]
		}
	}
	return fmt.Sprintf("%s:%s:%s", h, m, s)
}

// fixCadence restores a dropped leading 1: walking cadence below 100 but
// above 20 steps/min is almost always a truncated 1xx reading.
func fixCadence(c string) string {
	if v, err := strconv.Atoi(c); err == nil && v > 20 && v < 100 {
		return "1" + c
	}
	return c
}
