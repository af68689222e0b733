package transcode

import (
	"math"

	"github.com/jmylchreest/vodforge/internal/apperrors"
)

// VariantSpec is one rung of the fixed HLS rendition ladder.
type VariantSpec struct {
	Label         string
	TargetHeight  int
	TargetBitrateKbps int
}

// Ladder is the fixed set of renditions the orchestrator ever produces.
var Ladder = []VariantSpec{
	{Label: "480p", TargetHeight: 480, TargetBitrateKbps: 1000},
	{Label: "720p", TargetHeight: 720, TargetBitrateKbps: 2500},
	{Label: "1080p", TargetHeight: 1080, TargetBitrateKbps: 5000},
	{Label: "1440p", TargetHeight: 1440, TargetBitrateKbps: 8000},
}

// SelectVariants returns every ladder rung whose target height is at most
// sourceHeight. Fails with apperrors.SourceTooSmall if none qualify.
func SelectVariants(sourceHeight int) ([]VariantSpec, error) {
	var selected []VariantSpec
	for _, v := range Ladder {
		if v.TargetHeight <= sourceHeight {
			selected = append(selected, v)
		}
	}
	if len(selected) == 0 {
		return nil, apperrors.SourceTooSmall(sourceHeight)
	}
	return selected, nil
}

// ApproxWidth returns the 16:9 width implied by a rendition height, as
// used in the master playlist's RESOLUTION attribute.
func ApproxWidth(height int) int {
	return int(math.Round(float64(height) * 16.0 / 9.0))
}
