package seeing

import (
	"math"
)

// FieldEdgeFraction is the fraction of the width and height taken by each
// outer row and column of the 3x3 field grid.
const FieldEdgeFraction = 0.25

const (
	minStarsPerZone      = 3
	minTotalStarsForTilt = 20
)

var zoneLabels = map[ZonePosition]string{
	ZoneTopLeft:     "TL",
	ZoneTop:         "T",
	ZoneTopRight:    "TR",
	ZoneLeft:        "L",
	ZoneCenter:      "Center",
	ZoneRight:       "R",
	ZoneBottomLeft:  "BL",
	ZoneBottom:      "B",
	ZoneBottomRight: "BR",
}

func (z ZonePosition) String() string { return zoneLabels[z] }

var cornerPositions = []ZonePosition{ZoneTopLeft, ZoneTopRight, ZoneBottomLeft, ZoneBottomRight}

// AnalyzeField divides the image into a 3x3 grid and computes the per-zone
// median FWHM of the successful outcomes, the tilt between the best and worst
// corner and the off-axis degradation. It returns nil when no outcome
// succeeded.
func AnalyzeField(outcomes []SourceOutcome, width, height int) *FieldAnalysis {
	xLo := float64(width) * FieldEdgeFraction
	xHi := float64(width) * (1.0 - FieldEdgeFraction)
	yLo := float64(height) * FieldEdgeFraction
	yHi := float64(height) * (1.0 - FieldEdgeFraction)

	zoneFWHM := make(map[ZonePosition][]float64, len(ZoneOrder))
	for _, pos := range ZoneOrder {
		zoneFWHM[pos] = nil
	}
	total := 0
	for i := range outcomes {
		o := &outcomes[i]
		if !o.OK() {
			continue
		}
		x, y := o.Center()
		pos := classifyZone(x, y, xLo, xHi, yLo, yHi)
		zoneFWHM[pos] = append(zoneFWHM[pos], o.FWHM)
		total++
	}
	if total == 0 {
		return nil
	}

	zones := make(map[ZonePosition]ZoneData, len(zoneFWHM))
	for pos, values := range zoneFWHM {
		zd := ZoneData{Label: zoneLabels[pos], StarCount: len(values)}
		if len(values) > 0 {
			zd.MedianFWHM = Median(values)
		}
		zones[pos] = zd
	}

	result := &FieldAnalysis{
		Zones: zones,
	}

	centerFWHM := zones[ZoneCenter].MedianFWHM
	if centerFWHM <= 0 {
		result.Reliable = false
		return result
	}

	// Tilt: compare corners to center
	var bestCorner, worstCorner ZonePosition
	bestFWHM := math.MaxFloat64
	worstFWHM := 0.0
	validCorners := 0

	for _, pos := range cornerPositions {
		z := zones[pos]
		if z.StarCount < minStarsPerZone {
			continue
		}
		validCorners++
		if z.MedianFWHM < bestFWHM {
			bestFWHM = z.MedianFWHM
			bestCorner = pos
		}
		if z.MedianFWHM > worstFWHM {
			worstFWHM = z.MedianFWHM
			worstCorner = pos
		}
	}

	if validCorners >= 2 && worstFWHM > 0 {
		result.TiltPct = (worstFWHM - bestFWHM) / centerFWHM * 100.0
		result.BestCorner = zoneLabels[bestCorner]
		result.WorstCorner = zoneLabels[worstCorner]
	}

	// Off-axis: average of all non-center zones vs center
	var offAxisSum float64
	offAxisCount := 0
	for pos, z := range zones {
		if pos == ZoneCenter || z.StarCount < minStarsPerZone {
			continue
		}
		offAxisSum += z.MedianFWHM
		offAxisCount++
	}
	if offAxisCount > 0 {
		avgOffAxis := offAxisSum / float64(offAxisCount)
		result.OffAxisPct = (avgOffAxis - centerFWHM) / centerFWHM * 100.0
	}

	result.Reliable = total >= minTotalStarsForTilt && validCorners >= 4 && zones[ZoneCenter].StarCount >= minStarsPerZone

	return result
}

func classifyZone(x, y, xLo, xHi, yLo, yHi float64) ZonePosition {
	var col, row int
	if x < xLo {
		col = 0
	} else if x < xHi {
		col = 1
	} else {
		col = 2
	}
	if y < yLo {
		row = 0
	} else if y < yHi {
		row = 1
	} else {
		row = 2
	}
	return ZoneOrder[row*3+col]
}
