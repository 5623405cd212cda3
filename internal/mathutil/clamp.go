package mathutil

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampByte rounds and clamps a channel value to a byte.
func ClampByte[T constraints.Float](v T) uint8 {
	return uint8(Clamp(v, 0, 255) + 0.5)
}
