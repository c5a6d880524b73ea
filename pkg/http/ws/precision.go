package ws

import (
	"math"
	"time"
)

// Precision is the number of decimal places kept for each class of wire value.
// Server-side computation always runs at full precision.
type Precision struct {
	TimeDigits  int
	CoordDigits int
	SpeedDigits int
}

func DefaultPrecision() Precision {
	return Precision{TimeDigits: 3, CoordDigits: 1, SpeedDigits: 2}
}

// Time converts t to unix seconds rounded to TimeDigits.
func (p Precision) Time(t time.Time) float64 {
	return round(float64(t.UnixNano())/float64(time.Second), p.TimeDigits)
}

// Seconds rounds a duration in seconds to TimeDigits.
func (p Precision) Seconds(d time.Duration) float64 {
	return round(d.Seconds(), p.TimeDigits)
}

func (p Precision) Coord(v float64) float64 { return round(v, p.CoordDigits) }
func (p Precision) Speed(v float64) float64 { return round(v, p.SpeedDigits) }

func round(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}
