package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
)

const defaultStrokeWidth = 0.3

var noPaint = color.RGBA{0, 0, 0, 0}

var (
	fontOnce   sync.Once
	fontFamily *canvas.FontFamily
	fontErr    error
)

// labelFonts loads the embedded Go fonts once; the family is read-only afterwards.
func labelFonts() (*canvas.FontFamily, error) {
	fontOnce.Do(func() {
		family := canvas.NewFontFamily("label")
		if err := family.LoadFont(goregular.TTF, 0, canvas.FontRegular); err != nil {
			fontErr = fmt.Errorf("load regular font: %w", err)
			return
		}
		if err := family.LoadFont(gobold.TTF, 0, canvas.FontBold); err != nil {
			fontErr = fmt.Errorf("load bold font: %w", err)
			return
		}
		fontFamily = family
	})
	return fontFamily, fontErr
}

// Render composes, draws and PNG-encodes one label.
func Render(c label.Content, cfg label.LayoutConfig) ([]byte, error) {
	img, err := Draw(Build(c, cfg))
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// Draw rasterizes a tree at the printer's resolution.
func Draw(tree Tree) (*image.RGBA, error) {
	family, err := labelFonts()
	if err != nil {
		return nil, err
	}

	c := canvas.New(tree.Width, tree.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)

	ctx.SetFillColor(canvas.White)
	ctx.SetStrokeColor(noPaint)
	ctx.DrawPath(0, 0, canvas.Rectangle(tree.Width, tree.Height))

	for _, el := range tree.Elements {
		switch el.Kind {
		case ElementText:
			drawText(ctx, family, el)
		case ElementRect:
			drawRect(ctx, el)
		case ElementCircle:
			ctx.SetFillColor(noPaint)
			ctx.SetStrokeColor(canvas.Black)
			ctx.SetStrokeWidth(strokeWidth(el))
			ctx.DrawPath(el.X, el.Y, canvas.Circle(el.W/2))
		case ElementLine:
			ctx.SetStrokeColor(canvas.Black)
			ctx.SetStrokeWidth(strokeWidth(el))
			p := &canvas.Path{}
			p.MoveTo(0, 0)
			p.LineTo(el.W, el.H)
			ctx.DrawPath(el.X, el.Y, p)
		}
	}

	return rasterizer.Draw(c, canvas.DPMM(label.DotsPerMM), canvas.DefaultColorSpace), nil
}

func drawText(ctx *canvas.Context, family *canvas.FontFamily, el Element) {
	style := canvas.FontRegular
	if el.Bold {
		style = canvas.FontBold
	}
	var col color.Color = canvas.Black
	if el.Inverted {
		col = canvas.White
	}
	face := family.Face(el.FontSize, col, style, canvas.FontNormal)

	var align canvas.TextAlign
	var anchorX float64
	switch el.Align {
	case AlignCenter:
		align = canvas.Center
		anchorX = el.X + el.W/2
	case AlignRight:
		align = canvas.Right
		anchorX = el.X + el.W
	default:
		align = canvas.Left
		anchorX = el.X
	}

	baseline := el.Y + face.Metrics().Ascent
	ctx.DrawText(anchorX, baseline, canvas.NewTextLine(face, el.Text, align))
}

func drawRect(ctx *canvas.Context, el Element) {
	if el.Filled {
		ctx.SetFillColor(canvas.Black)
		ctx.SetStrokeColor(noPaint)
	} else {
		ctx.SetFillColor(noPaint)
		ctx.SetStrokeColor(canvas.Black)
		ctx.SetStrokeWidth(strokeWidth(el))
	}
	ctx.DrawPath(el.X, el.Y, canvas.Rectangle(el.W, el.H))
}

func strokeWidth(el Element) float64 {
	if el.StrokeWidth <= 0 {
		return defaultStrokeWidth
	}
	return el.StrokeWidth
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
