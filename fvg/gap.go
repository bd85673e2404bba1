// Package fvg detects Fair Value Gaps in a bar series and tracks them until
// price inverts them.
//
// A gap is opened when bar i and bar i-2 do not overlap and the distance
// between them exceeds a volatility threshold. It stays open until a later
// bar trades through the boundary set by bar i-2, at which point it is
// marked inverted, its direction flips, and it is appended to the
// inversion log.
package fvg

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Direction int

const (
	Bullish Direction = iota + 1
	Bearish
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Opposite returns the flipped bias.
func (d Direction) Opposite() Direction {
	switch d {
	case Bullish:
		return Bearish
	case Bearish:
		return Bullish
	default:
		return d
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish", "bull", "long":
		return Bullish, nil
	case "bearish", "bear", "short":
		return Bearish, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Status is the lifecycle stage of a gap.
type Status int

const (
	Open Status = iota + 1
	Inverted
)

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case Inverted:
		return "inverted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "open":
		*s = Open
	case "inverted":
		*s = Inverted
	default:
		return fmt.Errorf("unknown gap status %q", b)
	}
	return nil
}

// Gap is a Fair Value Gap. Low and High are the price bounds of the
// untraded interval, Low < High for both directions.
//
// Direction is the bias at creation while the gap is open and the flipped
// bias once inverted; Origin always keeps the creation bias.
type Gap struct {
	ID        int       `json:"id"`
	Origin    Direction `json:"origin"`
	Direction Direction `json:"direction"`
	Status    Status    `json:"status"`

	// LeftTime and RightTime are the timestamps of bars i-1 and i.
	LeftTime     time.Time `json:"left_time"`
	RightTime    time.Time `json:"right_time"`
	CreatedIndex int       `json:"created_index"`

	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Mid  float64 `json:"mid"`

	InversionTime  time.Time `json:"inversion_time,omitzero"`
	InversionIndex int       `json:"inversion_index,omitempty"`
}

// Size returns the height of the gap.
func (g Gap) Size() float64 {
	return g.High - g.Low
}

// InversionLevel is the price a bar must trade through to invert the gap:
// the bar i-2 boundary. For a bullish gap that is the i-2 high (the gap's
// Low), for a bearish gap the i-2 low (the gap's High).
func (g Gap) InversionLevel() float64 {
	if g.Origin == Bearish {
		return g.High
	}
	return g.Low
}

// invertedBy reports whether a bar with the given range inverts the gap.
func (g Gap) invertedBy(low, high float64) bool {
	switch g.Origin {
	case Bullish:
		return low < g.InversionLevel()
	case Bearish:
		return high > g.InversionLevel()
	}
	return false
}

func (g Gap) String() string {
	b, _ := json.Marshal(g)
	return string(b)
}
