// Package license derives the referee license a league requires from its name.
package license

import "strings"

const (
	LSE        = "LSE"
	LSD        = "LSD"
	LSEPlusLSD = "LSE+,LSD"
)

// Classify maps a league name to the license label. Rules are checked in
// order and the first match wins.
func Classify(name string) string {
	switch {
	case strings.Contains(name, "Herren"):
		if strings.Contains(name, "Kreisliga") {
			return LSE
		}
		return LSD
	case strings.Contains(name, "Damen"):
		if strings.Contains(name, "Bezirksliga") || strings.Contains(name, "Landesliga") {
			return LSE
		}
		return LSD
	case strings.Contains(name, "Oberliga"):
		return LSEPlusLSD
	case strings.Contains(name, "Playoffs"):
		return LSEPlusLSD
	default:
		return LSE
	}
}
