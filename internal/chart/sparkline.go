package chart

import (
	"bytes"
	"time"

	"github.com/mrcode/nightscout-fpu/internal/models"
)

// Sparkline renders the records as a 2-line Braille bar chart, one column per bin
func Sparkline(records []models.IntakeRecord, binWidth time.Duration) string {
	bins := Bins(records, binWidth)
	if len(bins) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, bin := range bins {
		if bin.Total() > maxVal {
			maxVal = bin.Total()
		}
	}
	if maxVal == 0 {
		maxVal = 1 // Avoid division by zero
	}

	var topLine, bottomLine bytes.Buffer

	for _, bin := range bins {
		// Scale to 0-4 range (each line represents half the height)
		height := bin.Total() / maxVal * 4.0

		var topChar, bottomChar rune
		switch {
		case height >= 4:
			topChar, bottomChar = '⣿', '⣿'
		case height >= 3.5:
			topChar, bottomChar = '⣶', '⣿'
		case height >= 3:
			topChar, bottomChar = '⣤', '⣿'
		case height >= 2.5:
			topChar, bottomChar = '⣀', '⣿'
		case height >= 2:
			topChar, bottomChar = '⠀', '⣿'
		case height >= 1.5:
			topChar, bottomChar = '⠀', '⣶'
		case height >= 1:
			topChar, bottomChar = '⠀', '⣤'
		case height > 0:
			topChar, bottomChar = '⠀', '⣀'
		default:
			topChar, bottomChar = '⠀', '⠀'
		}

		topLine.WriteRune(topChar)
		bottomLine.WriteRune(bottomChar)
	}

	return topLine.String() + "\n" + bottomLine.String()
}
