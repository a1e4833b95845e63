package transition

// Ease maps linear progress in [0,1] onto eased progress
type Ease func(t float64) float64

// Linear is the identity easing
func Linear(t float64) float64 {
	return t
}

// QuadInOut is symmetric quadratic easing
func QuadInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t / 2
	}
	t--
	return (t*(2-t) + 1) / 2
}

// CubicInOut is symmetric cubic easing, the default for new transitions
func CubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}
