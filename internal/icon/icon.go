// Package icon renders the tray glyphs and application icons as PNG.
package icon

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// AppSize is the edge length of application icons.
const AppSize = 96

// traySize is the edge length of tray icons.
const traySize = 32

// state colours
var (
	Gray   = color.RGBA{160, 160, 160, 255}
	Green  = color.RGBA{30, 200, 90, 255}
	Yellow = color.RGBA{240, 190, 30, 255}
	Red    = color.RGBA{220, 55, 55, 255}
)

// Tray returns the PNG tray icon for a session state.
func Tray(state string) []byte {
	c := Gray
	switch state {
	case "connected":
		c = Green
	case "connecting":
		c = Yellow
	case "error":
		c = Red
	}
	data, err := EncodePNG(Shield(c, traySize))
	if err != nil {
		return nil
	}
	return data
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Scale resizes src to a size x size square.
func Scale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// canvas blends antialiased pixels onto an RGBA image.
type canvas struct {
	img *image.RGBA
}

func (c canvas) blend(x, y int, col color.RGBA, alpha float64) {
	if !image.Pt(x, y).In(c.img.Rect) || alpha <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}
	dst := c.img.RGBAAt(x, y)
	ea := float64(dst.A) / 255
	oa := alpha + ea*(1-alpha)
	mix := func(s, d uint8) uint8 {
		return uint8((float64(s)*alpha + float64(d)*ea*(1-alpha)) / oa)
	}
	c.img.SetRGBA(x, y, color.RGBA{
		R: mix(col.R, dst.R),
		G: mix(col.G, dst.G),
		B: mix(col.B, dst.B),
		A: uint8(oa * 255),
	})
}

// shade returns a darker variant of c for drawn features.
func shade(c color.RGBA) color.RGBA {
	lum := int(c.R)*299 + int(c.G)*587 + int(c.B)*114
	if lum > 128000 {
		return color.RGBA{40, 40, 40, 255}
	}
	return color.RGBA{c.R / 3, c.G / 3, c.B / 3, 255}
}

// shieldHalfWidth returns the half width of the shield at row fy on a unit
// square, or -1 outside it.
func shieldHalfWidth(fy float64) float64 {
	switch {
	case fy < 0.06 || fy > 0.96:
		return -1
	case fy <= 0.14:
		return 0.30 + (fy-0.06)/0.08*0.12
	case fy <= 0.50:
		return 0.42
	default:
		t := (fy - 0.50) / 0.46
		return 0.42 * math.Sqrt(1-t*t)
	}
}

// Shield draws a shield with a keyhole in colour c.
func Shield(c color.RGBA, size int) *image.RGBA {
	cv := canvas{img: image.NewRGBA(image.Rect(0, 0, size, size))}
	dark := shade(c)
	s := float64(size)
	cx := s / 2

	for y := 0; y < size; y++ {
		hw := shieldHalfWidth((float64(y) + 0.5) / s)
		if hw < 0 {
			continue
		}
		hw *= s
		for x := 0; x < size; x++ {
			d := math.Abs(float64(x) + 0.5 - cx)
			if d > hw {
				continue
			}
			cv.blend(x, y, c, hw-d)
			// rim
			if hw-d < s/32+1 {
				cv.blend(x, y, dark, 0.6)
			}
		}
	}

	// keyhole: a disc over a tapered slot
	holeY := s * 0.42
	r := s * 0.10
	for y := 0; y < size; y++ {
		fy := float64(y) + 0.5
		for x := 0; x < size; x++ {
			fx := float64(x) + 0.5
			dist := math.Hypot(fx-cx, fy-holeY)
			cv.blend(x, y, dark, r-dist+0.5)
			if fy > holeY && fy < s*0.72 {
				w := r*0.45 + (fy-holeY)/(s*0.30)*r*0.35
				cv.blend(x, y, dark, w-math.Abs(fx-cx)+0.5)
			}
		}
	}

	return cv.img
}

// Placeholder draws a rounded tile carrying the first letter of name. The
// tile colour is derived from name so it stays stable between runs.
func Placeholder(name string) *image.RGBA {
	const small = 24
	bg := tileColor(name)
	cv := canvas{img: image.NewRGBA(image.Rect(0, 0, small, small))}

	radius := 5.0
	for y := 0; y < small; y++ {
		for x := 0; x < small; x++ {
			cv.blend(x, y, bg, roundedRectCoverage(float64(x)+0.5, float64(y)+0.5, small, radius))
		}
	}

	letter := initial(name)
	face := basicfont.Face7x13
	width := font.MeasureString(face, letter)
	d := &font.Drawer{
		Dst:  cv.img,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: (fixed.I(small) - width) / 2,
			Y: fixed.I(small/2 + 5),
		},
	}
	d.DrawString(letter)

	return Scale(cv.img, AppSize)
}

func roundedRectCoverage(x, y float64, size int, r float64) float64 {
	s := float64(size)
	dx := math.Max(math.Max(r-x, x-(s-r)), 0)
	dy := math.Max(math.Max(r-y, y-(s-r)), 0)
	return r - math.Hypot(dx, dy) + 0.5
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || r > unicode.MaxASCII || !unicode.IsPrint(r) {
		return "?"
	}
	return strings.ToUpper(string(r))
}

var palette = []color.RGBA{
	{66, 133, 244, 255},
	{219, 68, 55, 255},
	{244, 160, 0, 255},
	{15, 157, 88, 255},
	{171, 71, 188, 255},
	{0, 172, 193, 255},
	{255, 112, 67, 255},
	{92, 107, 192, 255},
}

func tileColor(name string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(name))
	return palette[h.Sum32()%uint32(len(palette))]
}
