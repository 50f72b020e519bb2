package replay

import (
	"math"
	"time"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/game"
)

// SectorCenter returns the angle, in degrees, of the centre of sector target
// on a wheel of n equal sectors. Sector 0 spans [0, 360/n).
func SectorCenter(n, target int) float64 {
	w := 360 / float64(n)
	return float64(target)*w + w/2
}

// SectorAt returns the sector under angle
func SectorAt(angle float64, n int) int {
	w := 360 / float64(n)
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	return int(a/w) % n
}

// SpinTo returns the absolute angle a wheel must rotate to from angle from
// so that it completes turns extra revolutions and comes to rest on the
// centre of sector target
func SpinTo(from float64, n, target, turns int) (float64, error) {
	if n <= 0 {
		return 0, errors.NewWithDebug(errors.ErrPayload, "wheel has no sectors", "")
	}
	if target < 0 || target >= n {
		return 0, errors.NewWithDebug(errors.ErrPayload, "target sector out of range", "")
	}
	if turns < 0 {
		turns = 0
	}

	offset := math.Mod(SectorCenter(n, target)-math.Mod(from, 360), 360)
	if offset < 0 {
		offset += 360
	}
	return from + float64(turns)*360 + offset, nil
}

// Spin builds the motion for a target-seeking spin
func Spin(from float64, n, target, turns int, d time.Duration) (*game.Motion, error) {
	to, err := SpinTo(from, n, target, turns)
	if err != nil {
		return nil, err
	}
	return &game.Motion{From: from, To: to, Duration: d}, nil
}
