// Package render draws spray patterns as images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"gunplay/internal/recoil"
	"gunplay/internal/weapon"
)

// ErrNoPattern is returned for weapons without a recoil pattern.
var ErrNoPattern = errors.New("weapon has no recoil pattern")

// Options controls the pattern image.
type Options struct {
	Width   int
	Height  int
	Scale   float64 // pixels per normalized screen unit, 0 fits the pattern
	Margin  float64
	Numbers bool // label every Nth shot
	Every   int

	FontSize float64

	Background color.Color
	Grid       color.Color
	Path       color.Color
	Dot        color.Color
	Crosshair  color.Color
}

// DefaultOptions returns a portrait plot with labels every fifth shot.
func DefaultOptions() Options {
	return Options{
		Width:      360,
		Height:     480,
		Margin:     32,
		Numbers:    true,
		Every:      5,
		FontSize:   12,
		Background: color.RGBA{12, 12, 28, 255},
		Grid:       color.RGBA{30, 30, 45, 255},
		Path:       color.RGBA{120, 120, 160, 255},
		Dot:        color.RGBA{255, 170, 40, 255},
		Crosshair:  color.RGBA{80, 220, 120, 255},
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = def.Width, def.Height
	}
	if o.Every <= 0 {
		o.Every = def.Every
	}
	if o.FontSize <= 0 {
		o.FontSize = def.FontSize
	}
	if o.Background == nil {
		o.Background = def.Background
	}
	if o.Path == nil {
		o.Path = def.Path
	}
	if o.Dot == nil {
		o.Dot = def.Dot
	}
	if o.Crosshair == nil {
		o.Crosshair = def.Crosshair
	}
	return o
}

// Origin returns where the crosshair sits in an image of the given size.
func (o Options) Origin() (x, y float64) {
	return float64(o.Width) / 2, float64(o.Height) - o.Margin*2
}

// fitScale picks the largest scale that keeps every sample inside the margins.
func (o Options) fitScale(samples []recoil.Sample) float64 {
	if o.Scale > 0 {
		return o.Scale
	}
	cx, cy := o.Origin()
	maxX, maxY := 0.0, 0.0
	for _, s := range samples {
		maxX = math.Max(maxX, math.Abs(s.Offset.X()))
		maxY = math.Max(maxY, math.Abs(s.Offset.Y()))
	}

	scale := math.Inf(1)
	if maxX > 0 {
		scale = math.Min(scale, (cx-o.Margin)/maxX)
	}
	if maxY > 0 {
		scale = math.Min(scale, (cy-o.Margin)/maxY)
	}
	if math.IsInf(scale, 1) {
		return 1
	}
	return scale
}

// PatternImage plots the aim curve samples over a crosshair. Shot 1 sits on
// the crosshair and later shots climb the image.
func PatternImage(c *recoil.Curve, opts Options) image.Image {
	opts = opts.withDefaults()

	var samples []recoil.Sample
	if c != nil {
		samples = c.Samples()
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	w, h := float64(opts.Width), float64(opts.Height)

	dc.SetColor(opts.Background)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	cx, cy := opts.Origin()
	drawGrid(dc, opts, cx, cy)

	dc.SetColor(opts.Crosshair)
	dc.SetLineWidth(2)
	dc.DrawLine(cx-10, cy, cx+10, cy)
	dc.DrawLine(cx, cy-10, cx, cy+10)
	dc.Stroke()

	if len(samples) == 0 {
		return dc.Image()
	}

	scale := opts.fitScale(samples)
	point := func(s recoil.Sample) (float64, float64) {
		return cx + s.Offset.X()*scale, cy - s.Offset.Y()*scale
	}

	dc.SetColor(opts.Path)
	dc.SetLineWidth(1.5)
	for i, s := range samples {
		x, y := point(s)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	if opts.Numbers {
		// gg's built-in face stays in place if the embedded font fails
		if face, err := labelFace(opts.FontSize); err == nil {
			dc.SetFontFace(face)
		}
	}
	for i, s := range samples {
		x, y := point(s)
		dc.SetColor(opts.Dot)
		dc.DrawCircle(x, y, 3.5)
		dc.Fill()

		shot := i + 1
		if opts.Numbers && (shot == 1 || shot%opts.Every == 0) {
			dc.SetColor(color.White)
			dc.DrawStringAnchored(fmt.Sprint(shot), x+8, y, 0, 0.5)
		}
	}

	return dc.Image()
}

func drawGrid(dc *gg.Context, opts Options, cx, cy float64) {
	if opts.Grid == nil {
		return
	}
	dc.SetColor(opts.Grid)
	dc.SetLineWidth(1)
	const step = 40.0
	for x := math.Mod(cx, step); x < float64(opts.Width); x += step {
		dc.DrawLine(x, 0, x, float64(opts.Height))
	}
	for y := math.Mod(cy, step); y < float64(opts.Height); y += step {
		dc.DrawLine(0, y, float64(opts.Width), y)
	}
	dc.Stroke()
}

// WeaponPattern renders the aim curve of a catalog weapon.
func WeaponPattern(spec weapon.Spec, opts Options) (image.Image, error) {
	if !spec.HasPattern() {
		return nil, fmt.Errorf("%s: %w", spec.ID, ErrNoPattern)
	}
	curve := recoil.AimCurve(*spec.Pattern, spec.AimScale, spec.FireInterval, spec.MagazineSize)
	return PatternImage(curve, opts), nil
}

// WritePatternPNG renders a weapon's pattern as PNG to w.
func WritePatternPNG(w io.Writer, spec weapon.Spec, opts Options) error {
	img, err := WeaponPattern(spec, opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}
