package teamsl

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownHorizon = errors.New("unknown horizon")

// Horizon is the upstream "zeitraum" token bounding how far ahead a search looks.
type Horizon string

const (
	HorizonWeek      Horizon = "w1"
	HorizonThreeWeek Horizon = "w3"
	HorizonAll       Horizon = "all"
)

// Horizons lists every supported horizon, shortest first.
func Horizons() []Horizon {
	return []Horizon{HorizonWeek, HorizonThreeWeek, HorizonAll}
}

func ParseHorizon(raw string) (Horizon, error) {
	h := Horizon(strings.ToLower(strings.TrimSpace(raw)))
	switch h {
	case HorizonWeek, HorizonThreeWeek, HorizonAll:
		return h, nil
	default:
		return "", fmt.Errorf("%w %q (want w1, w3 or all)", ErrUnknownHorizon, raw)
	}
}

// IsFull reports whether a search with this horizon sees every open game,
// which is the precondition for removing matches missing from the result.
func (h Horizon) IsFull() bool {
	return h == HorizonAll
}

func (h Horizon) String() string {
	return string(h)
}
