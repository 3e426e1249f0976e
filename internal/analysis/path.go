package analysis

import (
	"math"
	"strings"
)

// PathToASCII plots a body's trajectory in the plane, with axes drawn
// where they cross the view.
func PathToASCII(xs, ys []float64, width, height int) string {
	n := min(len(xs), len(ys))
	if n == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	cell := func(x, y float64) (int, int) {
		return int((x - minX) / rangeX * float64(width-1)), height - 1 - int((y-minY)/rangeY*float64(height-1))
	}

	for i := 0; i < n; i++ {
		col, row := cell(xs[i], ys[i])
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}
	// start and end
	if col, row := cell(xs[0], ys[0]); row >= 0 && row < height && col >= 0 && col < width {
		canvas[row][col] = 'o'
	}
	if col, row := cell(xs[n-1], ys[n-1]); row >= 0 && row < height && col >= 0 && col < width {
		canvas[row][col] = '@'
	}

	if minX <= 0 && maxX >= 0 {
		col, _ := cell(0, 0)
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		_, row := cell(0, 0)
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
