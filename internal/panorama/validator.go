package panorama

import "github.com/susu3304/geoguess/internal/game"

// MinLinks is the number of navigable neighbours a panorama needs on each
// tier. More links means a real street, which is easier to place.
var MinLinks = map[game.Tier]int{
	game.Easy:   2,
	game.Medium: 1,
	game.Hard:   0,
}

// IsAcceptable reports whether a looked-up panorama fits the tier.
func IsAcceptable(c game.PanoramaCandidate, tier game.Tier) bool {
	if c.PanoID == "" {
		return false
	}
	need, ok := MinLinks[tier]
	if !ok {
		return false
	}
	return c.LinkCount >= need
}
