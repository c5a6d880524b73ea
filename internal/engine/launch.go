package engine

import (
	"math"
	"math/rand"
)

// RandomLaunch draws a serve vector of the given speed. The angle from the
// horizontal is uniform in [cone, 90-cone] degrees so serves are never close to
// either axis. With HeadingNone the horizontal direction is random too.
func RandomLaunch(r *rand.Rand, speed, coneDeg float64, heading Heading) (vx, vy float64) {
	lo := coneDeg
	hi := 90 - coneDeg
	angle := (lo + r.Float64()*(hi-lo)) * math.Pi / 180

	if heading == HeadingNone {
		heading = HeadingLeft
		if r.Intn(2) == 1 {
			heading = HeadingRight
		}
	}

	vx = speed * math.Cos(angle)
	if heading == HeadingLeft {
		vx = -vx
	}
	vy = speed * math.Sin(angle)
	if r.Intn(2) == 1 {
		vy = -vy
	}
	return vx, vy
}
