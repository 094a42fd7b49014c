package imd

// ModeName returns a human-readable label for a track mode code (0-5),
// per IMD's own documented mode table (spec section 3). Unknown codes
// return "unknown".
func ModeName(mode byte) string {
	switch mode {
	case 0:
		return "500 kbps FM"
	case 1:
		return "300 kbps FM"
	case 2:
		return "250 kbps FM"
	case 3:
		return "500 kbps MFM"
	case 4:
		return "300 kbps MFM"
	case 5:
		return "250 kbps MFM"
	default:
		return "unknown"
	}
}
