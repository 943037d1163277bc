package calib

// LookupTable is a 1D radial lens-distortion lookup table. Index i covers
// normalized radius i/len; entries are correction magnitudes around zero,
// so the applied radial scale is 1 + value.
type LookupTable []float64

// Interpolate linearly interpolates the table at a fractional index.
// Indices beyond either end clamp to the first/last entry; the table is
// never extrapolated.
func (lt LookupTable) Interpolate(x float64) float64 {
	if len(lt) == 0 {
		return 0
	}
	i := int(x)
	if i < 0 {
		return lt[0]
	}
	if i >= len(lt)-1 {
		return lt[len(lt)-1]
	}
	alpha := x - float64(i)
	return lt[i]*(1-alpha) + lt[i+1]*alpha
}

// ScaleAt returns the radial correction scale for a normalized radius in
// [0, 1], interpolating the table at rNorm * len.
func (lt LookupTable) ScaleAt(rNorm float64) float64 {
	return 1.0 + lt.Interpolate(rNorm*float64(len(lt)))
}
