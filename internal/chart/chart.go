// Package chart draws carb timelines as PNG images and text sparklines
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	colorCarbs       = "#f97316" // Orange
	colorEquivalents = "#4ade80" // Green
	colorBackground  = "#1b2636"
	colorAxis        = "#9ca3af"
)

// Bin is the amount of carbs falling into one time slot
type Bin struct {
	Start       time.Time
	Carbs       float64
	Equivalents float64
}

// Total returns the grams in the slot
func (b Bin) Total() float64 {
	return b.Carbs + b.Equivalents
}

// Bins groups records into consecutive slots of width, starting at the earliest record
func Bins(records []models.IntakeRecord, width time.Duration) []Bin {
	if len(records) == 0 || width <= 0 {
		return nil
	}

	first, last := records[0].Timestamp, records[0].Timestamp
	for i := range records {
		if records[i].Timestamp.Before(first) {
			first = records[i].Timestamp
		}
		if records[i].Timestamp.After(last) {
			last = records[i].Timestamp
		}
	}

	n := int(last.Sub(first)/width) + 1
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Start = first.Add(time.Duration(i) * width)
	}

	for i := range records {
		idx := int(records[i].Timestamp.Sub(first) / width)
		grams := records[i].Grams.InexactFloat64()
		if records[i].IsEquivalent {
			bins[idx].Equivalents += grams
		} else {
			bins[idx].Carbs += grams
		}
	}

	return bins
}

// Options controls the rendered image
type Options struct {
	Width    int
	Height   int
	BinWidth time.Duration
	Title    string
}

// DefaultOptions returns a notification-sized chart with hourly bars
func DefaultOptions() Options {
	return Options{
		Width:    256,
		Height:   128,
		BinWidth: time.Hour,
	}
}

// RenderPNG draws the records as stacked bars, direct carbs below equivalents
func RenderPNG(records []models.IntakeRecord, opts Options) ([]byte, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid chart size %dx%d", opts.Width, opts.Height)
	}
	if opts.BinWidth <= 0 {
		opts.BinWidth = time.Hour
	}

	const (
		padding = 8.0
		header  = 20.0
	)

	w, h := float64(opts.Width), float64(opts.Height)
	dc := gg.NewContext(opts.Width, opts.Height)

	r, g, b := parseHexColor(colorBackground)
	dc.SetRGB255(int(r), int(g), int(b))
	dc.DrawRoundedRectangle(0, 0, w, h, 12)
	dc.Fill()

	if opts.Title != "" {
		if err := loadFont(dc, 12); err == nil {
			dc.SetColor(color.White)
			dc.DrawStringAnchored(opts.Title, w/2, header/2+2, 0.5, 0.5)
		}
	}

	// Baseline
	setHex(dc, colorAxis)
	dc.SetLineWidth(1)
	dc.DrawLine(padding, h-padding, w-padding, h-padding)
	dc.Stroke()

	bins := Bins(records, opts.BinWidth)
	if len(bins) > 0 {
		maxTotal := 0.0
		for _, bin := range bins {
			if bin.Total() > maxTotal {
				maxTotal = bin.Total()
			}
		}
		if maxTotal == 0 {
			maxTotal = 1
		}

		plotH := h - header - 2*padding
		slot := (w - 2*padding) / float64(len(bins))
		barW := slot * 0.7

		for i, bin := range bins {
			x := padding + float64(i)*slot + (slot-barW)/2
			y := h - padding

			carbsH := bin.Carbs / maxTotal * plotH
			if carbsH > 0 {
				setHex(dc, colorCarbs)
				dc.DrawRectangle(x, y-carbsH, barW, carbsH)
				dc.Fill()
				y -= carbsH
			}

			eqH := bin.Equivalents / maxTotal * plotH
			if eqH > 0 {
				setHex(dc, colorEquivalents)
				dc.DrawRectangle(x, y-eqH, barW, eqH)
				dc.Fill()
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTempPNG renders the chart into a temporary file and returns its path
func WriteTempPNG(records []models.IntakeRecord, opts Options) (string, error) {
	data, err := RenderPNG(records, opts)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "nightscout-fpu-*.png")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// loadFont helper to load font safely
func loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	face := truetype.NewFace(font, &truetype.Options{Size: size})
	dc.SetFontFace(face)
	return nil
}

func setHex(dc *gg.Context, hex string) {
	r, g, b := parseHexColor(hex)
	dc.SetRGB255(int(r), int(g), int(b))
}

// parseHexColor parses a hex color string to RGB values
func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}
