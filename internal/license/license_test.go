package license

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		league string
		want   string
	}{
		{"Herren Kreisliga A", LSE},
		{"Herren Bezirksliga Nord", LSD},
		{"Herren Oberliga", LSD},
		{"Damen Bezirksliga Süd", LSE},
		{"Damen Landesliga", LSE},
		{"Damen Kreisliga", LSD},
		{"Oberliga Nord", LSEPlusLSD},
		{"U18 Playoffs", LSEPlusLSD},
		{"U14 mixed Kreisliga", LSE},
		{"", LSE},
	}
	for _, tc := range cases {
		if got := Classify(tc.league); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.league, got, tc.want)
		}
	}
}
