package tiling

import "github.com/1broseidon/tagwm/internal/platform"

// ApplySizeHints clamps the size of geom to the ICCCM normal hints. The
// position is left untouched and the result is never smaller than 1x1.
func ApplySizeHints(geom platform.Rect, h platform.SizeHints) platform.Rect {
	w, ht := geom.Width, geom.Height

	baseIsMin := h.BaseWidth == h.MinWidth && h.BaseHeight == h.MinHeight
	if !baseIsMin {
		w -= h.BaseWidth
		ht -= h.BaseHeight
	}

	// Aspect limits apply before increments.
	if w > 0 && ht > 0 && h.MinAspectNum > 0 && h.MinAspectDen > 0 && h.MaxAspectNum > 0 && h.MaxAspectDen > 0 {
		minA := float64(h.MinAspectDen) / float64(h.MinAspectNum)
		maxA := float64(h.MaxAspectNum) / float64(h.MaxAspectDen)
		if maxA < float64(w)/float64(ht) {
			w = int(float64(ht)*maxA + 0.5)
		} else if minA < float64(ht)/float64(w) {
			ht = int(float64(w)*minA + 0.5)
		}
	}

	if baseIsMin {
		w -= h.BaseWidth
		ht -= h.BaseHeight
	}

	if h.IncWidth > 0 && w > 0 {
		w -= w % h.IncWidth
	}
	if h.IncHeight > 0 && ht > 0 {
		ht -= ht % h.IncHeight
	}

	w = max(w+h.BaseWidth, h.MinWidth)
	ht = max(ht+h.BaseHeight, h.MinHeight)

	if h.MaxWidth > 0 {
		w = min(w, h.MaxWidth)
	}
	if h.MaxHeight > 0 {
		ht = min(ht, h.MaxHeight)
	}

	geom.Width = max(w, 1)
	geom.Height = max(ht, 1)
	return geom
}
