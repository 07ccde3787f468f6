package hrf

// FWHM returns the full width at half maximum of h over time stamps t, using
// linear interpolation of the half-maximum crossings. It returns -1 when the
// curve never falls back below half maximum. Diagnostic only.
func FWHM(t, h []float64) float64 {
	if len(h) == 0 || len(t) != len(h) {
		return -1
	}

	peak := h[0]
	peakIdx := 0
	for i, v := range h {
		if v > peak {
			peak = v
			peakIdx = i
		}
	}
	half := peak / 2

	// Rising crossing left of the peak.
	left := -1.0
	for i := peakIdx; i > 0; i-- {
		if h[i-1] < half && h[i] >= half {
			left = crossing(t[i-1], t[i], h[i-1], h[i], half)
			break
		}
	}
	// Falling crossing right of the peak.
	right := -1.0
	for i := peakIdx; i < len(h)-1; i++ {
		if h[i] >= half && h[i+1] < half {
			right = crossing(t[i], t[i+1], h[i], h[i+1], half)
			break
		}
	}
	if left < 0 || right < 0 {
		return -1
	}
	return right - left
}

// TimeToPeak returns the time stamp of the curve's maximum.
func TimeToPeak(t, h []float64) float64 {
	if len(h) == 0 || len(t) != len(h) {
		return -1
	}
	peakIdx := 0
	for i, v := range h {
		if v > h[peakIdx] {
			peakIdx = i
		}
	}
	return t[peakIdx]
}

// crossing linearly interpolates the time at which the segment
// (t0,v0)-(t1,v1) crosses level.
func crossing(t0, t1, v0, v1, level float64) float64 {
	if v1 == v0 {
		return t0
	}
	return t0 + (t1-t0)*(level-v0)/(v1-v0)
}
