package constants

import "testing"

func TestCanonicalizeAppClass(t *testing.T) {
	cases := []struct {
		in    string
		want  AppClass
		known bool
	}{
		{"samsung", SamsungHealth, true},
		{"Samsung Health", SamsungHealth, true},
		{"  huawei ", HuaweiHealth, true},
		{"GFIT", GoogleFit, true},
		{"apple", AppleHealth, true},
		{"health", AppleHealth, true},
		{"garmin connect", GarminConnect, true},
		{"other", OtherApp, true},
		{"walkmania", OtherApp, false},
		{"", OtherApp, false},
	}
	for _, tc := range cases {
		got, known := CanonicalizeAppClass(tc.in)
		if got != tc.want || known != tc.known {
			t.Errorf("CanonicalizeAppClass(%q) = %s/%v, want %s/%v", tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestAppClassStrings(t *testing.T) {
	got := AppClassStrings()
	if len(got) != 7 {
		t.Fatalf("labels = %d, want 7", len(got))
	}
	if got[0] != "Apple Health" || got[len(got)-1] != "Other" {
		t.Errorf("label order = %v", got)
	}
}

func TestNormalizeEnvironment(t *testing.T) {
	if NormalizeEnvironment("production") != EnvProduction {
		t.Error("production not recognized")
	}
	for _, s := range []string{"", "staging", "qa", "PRODUCTION"} {
		if NormalizeEnvironment(s) != EnvStaging {
			t.Errorf("NormalizeEnvironment(%q) should default to staging", s)
		}
	}
}
