package extract

// Result holds the structured fields pulled from one screenshot. Every
// field is optional; a nil field means "not found" and is omitted from
// the delivery payload (never serialized as null).
type Result struct {
	Steps         *int
	Date          *string
	Distance      *string
	Duration      *string
	TotalCalories *string
	AvgPace       *string
	AvgSpeed      *string
	AvgCadence    *string
	AvgStride     *string
	AvgHeartRate  *string
}

// Map renders the result as the extracted_data payload object. Keys are
// the wire names consumed by the result receiver.
func (r Result) Map() map[string]any {
	out := map[string]any{}
	if r.Steps != nil {
		out["steps"] = *r.Steps
	}
	putStr(out, "date", r.Date)
	putStr(out, "distance", r.Distance)
	putStr(out, "duration", r.Duration)
	putStr(out, "total_calories", r.TotalCalories)
	putStr(out, "avg_pace", r.AvgPace)
	putStr(out, "avg_speed", r.AvgSpeed)
	putStr(out, "avg_cadence", r.AvgCadence)
	putStr(out, "avg_stride", r.AvgStride)
	putStr(out, "avg_heart_rate", r.AvgHeartRate)
	return out
}

func putStr(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func strPtr(s string) *string { return &s }
