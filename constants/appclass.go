package constants

import (
	"strings"
)

// AppClass is the canonical label for the fitness app a screenshot came from.
type AppClass string

const (
	AppleHealth   AppClass = "Apple Health"
	GoogleFit     AppClass = "Google Fit"
	HuaweiHealth  AppClass = "Huawei Health"
	SamsungHealth AppClass = "Samsung Health"
	Fitbit        AppClass = "Fitbit"
	GarminConnect AppClass = "Garmin Connect"
	OtherApp      AppClass = "Other"
)

var allAppClasses = []AppClass{
	AppleHealth,
	GoogleFit,
	HuaweiHealth,
	SamsungHealth,
	Fitbit,
	GarminConnect,
	OtherApp,
}

func AppClassStrings() []string {
	result := make([]string, len(allAppClasses))
	for i, a := range allAppClasses {
		result[i] = string(a)
	}
	return result
}

// CanonicalizeAppClass maps caller-supplied category hints onto the closed
// label set. Used by the local/offline validation mode where the caller
// already knows the source app.
func CanonicalizeAppClass(input string) (AppClass, bool) {
	if input == "" {
		return OtherApp, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]AppClass{
		"apple":   AppleHealth,
		"health":  AppleHealth,
		"google":  GoogleFit,
		"gfit":    GoogleFit,
		"huawei":  HuaweiHealth,
		"samsung": SamsungHealth,
		"garmin":  GarminConnect,
	}

	if a, ok := synonyms[normalized]; ok {
		return a, true
	}

	for _, a := range allAppClasses {
		if normalized == strings.ToLower(string(a)) {
			return a, true
		}
	}

	return OtherApp, false
}
