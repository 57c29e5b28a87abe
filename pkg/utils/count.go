package utils

import "strconv"

// FormatCount renders a counter for display: 999, 1.2K, 2.5M.
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.Itoa(n)
	}
}

// LikeLabel renders "1 like" / "1.2K likes".
func LikeLabel(n int) string {
	if n == 1 {
		return FormatCount(n) + " like"
	}
	return FormatCount(n) + " likes"
}
