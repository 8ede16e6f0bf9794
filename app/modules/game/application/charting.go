package gameservice

import (
	"bytes"
	"fmt"

	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette holds the colors used when rendering scorecard charts.
type ChartPalette struct {
	Background  drawing.Color
	PrimaryLine drawing.Color
	AccentLine  drawing.Color
	TextColor   drawing.Color
}

// DefaultChartPalette is a dark lane-themed palette.
func DefaultChartPalette() ChartPalette {
	return ChartPalette{
		Background:  drawing.ColorFromHex("1b1f24"),
		PrimaryLine: drawing.ColorFromHex("e8a33d"),
		AccentLine:  drawing.ColorFromHex("f4f4f4"),
		TextColor:   drawing.ColorFromHex("d0d4d9"),
	}
}

// RenderScoreCardChart produces a PNG line chart of the cumulative score by
// frame. A card with no frames renders a placeholder.
func RenderScoreCardChart(view *ScoreCardView, palette ChartPalette) ([]byte, error) {
	if view == nil || len(view.Frames) == 0 {
		return renderNoFramesPlaceholder(palette)
	}

	xValues := make([]float64, len(view.Frames))
	yValues := make([]float64, len(view.Frames))
	ticks := make([]chart.Tick, 0, gamedomain.FramesPerGame)
	for i, row := range view.Frames {
		xValues[i] = float64(row.Number)
		yValues[i] = float64(row.FrameScore)
	}
	for n := 1; n <= gamedomain.FramesPerGame; n++ {
		ticks = append(ticks, chart.Tick{Value: float64(n), Label: fmt.Sprintf("%d", n)})
	}

	mainSeries := chart.ContinuousSeries{
		Name:    "Running score",
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: palette.PrimaryLine,
			StrokeWidth: 2,
			DotWidth:    4,
			DotColor:    palette.AccentLine,
		},
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s - %d", view.Bowler, view.Total),
		Width:  800,
		Height: 400,
		TitleStyle: chart.Style{
			FontColor: palette.TextColor,
		},
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.XAxis{
			Name:  "Frame",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 1, Max: gamedomain.FramesPerGame},
			Style: chart.Style{
				FontColor: palette.TextColor,
			},
		},
		YAxis: chart.YAxis{
			Name:  "Score",
			Range: &chart.ContinuousRange{Min: 0, Max: 300},
			Style: chart.Style{
				FontColor: palette.TextColor,
			},
		},
		Series: []chart.Series{mainSeries},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render scorecard chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func renderNoFramesPlaceholder(palette ChartPalette) ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No frames recorded"
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		// go-chart refuses to render without a series.
		Series: []chart.Series{chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
		}},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(palette.TextColor)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
