// Package render draws a still preview of a bout snapshot.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"

	"sumo-arena/internal/game"
)

// Options sizes the output image
type Options struct {
	Width  int
	Height int

	// Avatars is optional; wrestlers are drawn without a face when nil
	Avatars *AvatarCache
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 || o.Height <= 0 {
		def := DefaultOptions()
		o.Width, o.Height = def.Width, def.Height
	}
	return o
}

// DefaultOptions is a 16:9 preview
func DefaultOptions() Options {
	return Options{Width: 640, Height: 360}
}

var (
	colorBackground = color.RGBA{24, 20, 16, 255}
	colorDohyo      = color.RGBA{205, 170, 115, 255}
	colorTawara     = color.RGBA{235, 225, 200, 255}
	colorShikiri    = color.RGBA{250, 250, 250, 255}
	colorMeterBack  = color.RGBA{51, 51, 51, 255}
	colorStamina    = color.RGBA{83, 255, 69, 255}
	colorDanger     = color.RGBA{255, 62, 62, 255}
	colorText       = color.RGBA{240, 240, 240, 255}
)

// Frame draws snap into a new image
func Frame(snap game.Snapshot, opts Options) image.Image {
	opts = opts.withDefaults()
	dc := gg.NewContext(opts.Width, opts.Height)
	v := newView(snap, opts)

	dc.SetColor(colorBackground)
	dc.Clear()

	drawRing(dc, v, snap)
	drawWrestler(dc, v, snap.P1, snap.EdgeDanger.P1, opts.Avatars.GetOrFetch(snap.P1.AvatarSeed))
	drawWrestler(dc, v, snap.P2, snap.EdgeDanger.P2, opts.Avatars.GetOrFetch(snap.P2.AvatarSeed))
	drawHUD(dc, opts, snap)

	return dc.Image()
}

// WritePNG encodes the preview of snap as PNG
func WritePNG(w io.Writer, snap game.Snapshot, opts Options) error {
	dc := gg.NewContextForImage(Frame(snap, opts))
	return eris.Wrap(dc.EncodePNG(w), "encode png")
}

// view maps arena units to pixels, centered on the ring
type view struct {
	scale  float64
	cx, cy float64
	ox, oy float64
}

func newView(snap game.Snapshot, opts Options) view {
	radius := snap.RingRadius
	if radius <= 0 {
		radius = 1
	}
	// ring plus one radius of margin on the short side
	short := math.Min(float64(opts.Width), float64(opts.Height))
	return view{
		scale: short / (radius * 2.6),
		cx:    float64(opts.Width) / 2,
		cy:    float64(opts.Height)/2 + 10,
		ox:    snap.CenterX,
		oy:    snap.CenterY,
	}
}

func (v view) point(x, y float64) (float64, float64) {
	return v.cx + (x-v.ox)*v.scale, v.cy + (y-v.oy)*v.scale
}

func drawRing(dc *gg.Context, v view, snap game.Snapshot) {
	r := snap.RingRadius * v.scale

	dc.SetColor(colorDohyo)
	dc.DrawCircle(v.cx, v.cy, r*1.15)
	dc.Fill()

	dc.SetColor(colorTawara)
	dc.SetLineWidth(math.Max(2, r*0.04))
	dc.DrawCircle(v.cx, v.cy, r)
	dc.Stroke()

	// shikiri-sen
	dc.SetColor(colorShikiri)
	dc.SetLineWidth(2)
	for _, dx := range []float64{-0.15, 0.15} {
		x := v.cx + dx*r
		dc.DrawLine(x, v.cy-r*0.12, x, v.cy+r*0.12)
		dc.Stroke()
	}
}

func drawWrestler(dc *gg.Context, v view, w game.WrestlerSnapshot, danger float64, face image.Image) {
	x, y := v.point(w.X, w.Y)
	radius := 2.2 * v.scale

	dc.SetColor(color.RGBA{0, 0, 0, 96})
	dc.DrawCircle(x, y+radius*0.2, radius)
	dc.Fill()

	dc.SetColor(parseHexColor(w.Color))
	dc.DrawCircle(x, y, radius)
	dc.Fill()

	if face != nil {
		drawFace(dc, face, x, y, radius*0.8)
	}

	border := colorText
	if danger >= 0.9 {
		border = colorDanger
	}
	dc.SetColor(border)
	dc.SetLineWidth(3)
	dc.DrawCircle(x, y, radius)
	dc.Stroke()

	if font := fontPath(); font != "" {
		if err := dc.LoadFontFace(font, 12); err == nil {
			dc.SetColor(colorText)
			dc.DrawStringAnchored(w.Name, x, y-radius-10, 0.5, 0.5)
		}
	}
}

// drawFace scales face to a circle of radius r centered on (x, y)
func drawFace(dc *gg.Context, face image.Image, x, y, r float64) {
	size := float64(face.Bounds().Dx())
	if size <= 0 {
		return
	}
	k := 2 * r / size
	dc.Push()
	dc.Translate(x-r, y-r)
	dc.Scale(k, k)
	dc.DrawImage(face, 0, 0)
	dc.Pop()
}

func drawHUD(dc *gg.Context, opts Options, snap game.Snapshot) {
	const (
		margin = 16.0
		barW   = 180.0
		barH   = 10.0
	)
	right := float64(opts.Width) - margin - barW

	drawMeter(dc, margin, margin, barW, barH, snap.P1.Stamina/100, colorStamina)
	drawMeter(dc, margin, margin+barH+6, barW, barH, snap.EdgeDanger.P1, colorDanger)
	drawMeter(dc, right, margin, barW, barH, snap.P2.Stamina/100, colorStamina)
	drawMeter(dc, right, margin+barH+6, barW, barH, snap.EdgeDanger.P2, colorDanger)

	font := fontPath()
	if font == "" || dc.LoadFontFace(font, 16) != nil {
		return
	}
	dc.SetColor(colorText)
	status := string(snap.State)
	switch {
	case snap.GameOver && snap.WinnerName != "":
		status = fmt.Sprintf("%s wins", snap.WinnerName)
	case snap.State == game.StateCountdown:
		status = fmt.Sprintf("%.0f", math.Ceil(snap.Countdown))
	}
	dc.DrawStringAnchored(status, float64(opts.Width)/2, margin+barH, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.1fs", snap.Time), float64(opts.Width)/2, float64(opts.Height)-margin, 0.5, 0.5)
}

func drawMeter(dc *gg.Context, x, y, w, h, ratio float64, fill color.Color) {
	ratio = math.Max(0, math.Min(1, ratio))

	dc.SetColor(colorMeterBack)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRectangle(x, y, w*ratio, h)
	dc.Fill()
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}
	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}

func fontPath() string {
	paths := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
		"C:\\Windows\\Fonts\\arial.ttf",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if matches, _ := filepath.Glob("*.ttf"); len(matches) > 0 {
		return matches[0]
	}
	return ""
}
