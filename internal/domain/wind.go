package domain

import "math"

// Components are the wind components along and across one runway heading.
// A negative HeadwindKt is a tailwind.
type Components struct {
	HeadwindKt  float64
	CrosswindKt float64
}

// TailwindKt returns the tailwind component, or 0 when the wind is a headwind.
func (c Components) TailwindKt() float64 {
	if c.HeadwindKt < 0 {
		return -c.HeadwindKt
	}
	return 0
}

// ComponentsFor decomposes a steady wind against a runway heading.
func ComponentsFor(directionDeg, speedKt, headingDeg float64) Components {
	if speedKt == 0 {
		return Components{}
	}
	rad := AngleDifference(directionDeg, headingDeg) * math.Pi / 180
	return Components{
		HeadwindKt:  speedKt * math.Cos(rad),
		CrosswindKt: math.Abs(speedKt * math.Sin(rad)),
	}
}

// AngleDifference returns the signed angle from heading to direction,
// normalized into [-180, 180].
func AngleDifference(directionDeg, headingDeg float64) float64 {
	d := math.Mod(directionDeg-headingDeg, 360)
	switch {
	case d > 180:
		d -= 360
	case d < -180:
		d += 360
	}
	return d
}

// NormalizeHeading maps any heading into [0, 360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// WorstCase returns the components the engine ranks a runway by.
//
// Crosswind uses the gust speed when reported. For a variable range it is the
// largest crosswind over the range bounds, the mean direction and any
// perpendicular to the runway that lies inside the arc. Bare VRB wind gives the
// full speed as crosswind.
//
// Headwind uses the mean speed. For variable wind it is the least favourable
// headwind over the same candidates, and a full tailwind when the arc
// contains the runway's reciprocal.
func (w Wind) WorstCase(headingDeg float64) Components {
	mean := float64(w.SpeedKt)
	peak := mean
	if w.GustKt != nil && float64(*w.GustKt) > peak {
		peak = float64(*w.GustKt)
	}
	if peak == 0 {
		return Components{}
	}

	d := w.Direction
	switch {
	case d.Kind == FixedDirection:
		return Components{
			HeadwindKt:  ComponentsFor(float64(d.Degrees), mean, headingDeg).HeadwindKt,
			CrosswindKt: ComponentsFor(float64(d.Degrees), peak, headingDeg).CrosswindKt,
		}
	case !d.Bounded:
		return Components{HeadwindKt: -mean, CrosswindKt: peak}
	}

	from, to := float64(d.From), float64(d.To)
	candidates := []float64{from, to}
	if d.HasMean {
		candidates = append(candidates, float64(d.Degrees))
	}

	out := Components{HeadwindKt: math.Inf(1)}
	for _, dir := range candidates {
		out.CrosswindKt = math.Max(out.CrosswindKt, ComponentsFor(dir, peak, headingDeg).CrosswindKt)
		out.HeadwindKt = math.Min(out.HeadwindKt, ComponentsFor(dir, mean, headingDeg).HeadwindKt)
	}
	for _, perp := range []float64{headingDeg + 90, headingDeg - 90} {
		if InArc(perp, from, to) {
			out.CrosswindKt = peak
		}
	}
	if InArc(headingDeg+180, from, to) {
		out.HeadwindKt = -mean
	}
	return out
}

// InArc reports whether a direction lies on the clockwise arc from..to, inclusive.
func InArc(dir, from, to float64) bool {
	dir, from, to = NormalizeHeading(dir), NormalizeHeading(from), NormalizeHeading(to)
	if from <= to {
		return dir >= from && dir <= to
	}
	return dir >= from || dir <= to
}
