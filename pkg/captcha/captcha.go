// Package captcha renders the short visual challenge shown before login.
package captcha

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/big"
	mrand "math/rand/v2"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Charset omits glyphs that are easy to confuse (0/O, 1/l/I, i).
const Charset = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	noiseLines  = 5
	noisePoints = 50
)

// Generator produces challenge text and its PNG rendering.
type Generator struct {
	length int
	width  int
	height int
}

// NewGenerator builds a generator; non-positive values take the defaults 4, 150 and 60.
func NewGenerator(length, width, height int) *Generator {
	if length <= 0 {
		length = 4
	}
	if width <= 0 {
		width = 150
	}
	if height <= 0 {
		height = 60
	}
	return &Generator{length: length, width: width, height: height}
}

// Generate returns fresh challenge text and the PNG-encoded image.
func (g *Generator) Generate() (string, []byte, error) {
	text, err := randomText(g.length)
	if err != nil {
		return "", nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i := 0; i < noiseLines; i++ {
		drawLine(img,
			image.Pt(mrand.IntN(g.width), mrand.IntN(g.height)),
			image.Pt(mrand.IntN(g.width), mrand.IntN(g.height)),
			randomColor())
	}
	for i := 0; i < noisePoints; i++ {
		img.Set(mrand.IntN(g.width), mrand.IntN(g.height), randomColor())
	}

	g.drawText(img, text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, fmt.Errorf("encode captcha: %w", err)
	}
	return text, buf.Bytes(), nil
}

// Matches compares an answer to the expected text ignoring case and surrounding space.
func Matches(expected, answer string) bool {
	if expected == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), expected)
}

func (g *Generator) drawText(dst *image.RGBA, text string) {
	face := basicfont.Face7x13
	scale := (g.height * 2 / 3) / face.Height
	if scale < 1 {
		scale = 1
	}
	slot := (g.width - 20) / g.length

	for i, r := range text {
		glyph := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))
		d := font.Drawer{
			Dst:  glyph,
			Src:  image.NewUniform(randomColor()),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(string(r))

		x := 10 + i*slot + mrand.IntN(6)
		y := 5 + mrand.IntN(11)
		target := image.Rect(x, y, x+face.Advance*scale, y+face.Height*scale)
		draw.NearestNeighbor.Scale(dst, target, glyph, glyph.Bounds(), draw.Over, nil)
	}
}

func randomText(n int) (string, error) {
	limit := big.NewInt(int64(len(Charset)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate captcha text: %w", err)
		}
		out[i] = Charset[idx.Int64()]
	}
	return string(out), nil
}

func randomColor() color.RGBA {
	c := func() uint8 { return uint8(30 + mrand.IntN(121)) }
	return color.RGBA{R: c(), G: c(), B: c(), A: 0xff}
}

func drawLine(img *image.RGBA, from, to image.Point, c color.Color) {
	dx, dy := to.X-from.X, to.Y-from.Y
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.Set(from.X, from.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		img.Set(from.X+dx*i/steps, from.Y+dy*i/steps, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
