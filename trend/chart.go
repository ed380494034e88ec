package trend

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/robotomize/cbarates/provider"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Format of the rendered image
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

const (
	width  = 12 * vg.Inch
	height = 6 * vg.Inch
	dpi    = 150
)

var ErrUnknownFormat = errors.New("unknown image format")

var (
	rateColor    = color.RGBA{B: 255, A: 255}
	averageColor = color.RGBA{R: 255, G: 165, A: 255}
)

// FormatFromPath picks the format by the file extension
func FormatFromPath(path string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))); f {
	case FormatSVG, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Chart describes the rendered image. An empty Title is replaced with "{code} rate from {first} to {last}"
type Chart struct {
	Title  string
	Code   string
	Window int
	Points []Point
}

func (c Chart) title() string {
	if c.Title != "" {
		return c.Title
	}

	first, last := Bounds(c.Points)

	return strings.TrimSpace(fmt.Sprintf("%s rate from %s to %s",
		c.Code, first.Format(provider.DateLayout), last.Format(provider.DateLayout)))
}

// Render draws the rate as a solid blue line and the moving average as a dashed orange line on a 12x6 inch canvas
func Render(w io.Writer, c Chart, f Format) error {
	if len(c.Points) == 0 {
		return ErrNoData
	}

	if c.Window <= 0 {
		c.Window = DefaultWindow
	}

	p, err := newPlot(c)
	if err != nil {
		return err
	}

	var canvas io.WriterTo
	switch f {
	case FormatSVG:
		svg := vgsvg.New(width, height)
		p.Draw(draw.New(svg))
		canvas = svg
	case FormatPNG:
		img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
		p.Draw(draw.New(img))
		canvas = vgimg.PngCanvas{Canvas: img}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	if _, err := canvas.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}

	return nil
}

func RenderSVG(w io.Writer, c Chart) error {
	return Render(w, c, FormatSVG)
}

func RenderPNG(w io.Writer, c Chart) error {
	return Render(w, c, FormatPNG)
}

func newPlot(c Chart) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.title()
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Rate"
	p.X.Tick.Marker = plot.TimeTicks{Format: provider.DateLayout}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	rates := make(plotter.XYs, 0, len(c.Points))
	averages := make(plotter.XYs, 0, len(c.Points))
	for _, pt := range c.Points {
		x := float64(pt.Date.Unix())
		rates = append(rates, plotter.XY{X: x, Y: pt.Rate.InexactFloat64()})
		if pt.HasAvg {
			averages = append(averages, plotter.XY{X: x, Y: pt.Avg.InexactFloat64()})
		}
	}

	rate, err := plotter.NewLine(rates)
	if err != nil {
		return nil, fmt.Errorf("rate line: %w", err)
	}

	rate.LineStyle.Color = rateColor
	rate.LineStyle.Width = vg.Points(1.5)
	p.Add(rate)
	p.Legend.Add(strings.TrimSpace(c.Code+" rate"), rate)

	// the average starts at the window-th point, a shorter series has no line at all
	if len(averages) > 0 {
		avg, err := plotter.NewLine(averages)
		if err != nil {
			return nil, fmt.Errorf("average line: %w", err)
		}

		avg.LineStyle.Color = averageColor
		avg.LineStyle.Width = vg.Points(1.5)
		avg.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(avg)
		p.Legend.Add(fmt.Sprintf("Moving average (%d days)", c.Window), avg)
	}

	return p, nil
}
