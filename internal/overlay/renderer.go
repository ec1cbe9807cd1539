package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsign/internal/detector"
)

// Style controls how landmarks are drawn.
type Style struct {
	EdgeColor   color.RGBA
	EdgeWidth   int
	PointColor  color.RGBA
	PointRadius int
	TextColor   color.RGBA
	TextScale   float64
	TextWidth   int
}

// DefaultStyle draws green connections and red points, like MediaPipe's drawing utils.
func DefaultStyle() Style {
	return Style{
		EdgeColor:   color.RGBA{R: 0, G: 255, B: 0, A: 255},
		EdgeWidth:   2,
		PointColor:  color.RGBA{R: 255, G: 0, B: 0, A: 255},
		PointRadius: 3,
		TextColor:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
		TextScale:   2,
		TextWidth:   3,
	}
}

// Renderer draws landmarks. It keeps no state between calls.
type Renderer struct {
	style Style
}

// NewRenderer creates a Renderer with the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// Resize matches the backing buffer to the intrinsic video size and the
// display size to the viewport box. Zero sizes are ignored, so this is safe
// before the first frame has arrived.
func (r *Renderer) Resize(c *Canvas, intrinsic image.Point, viewport image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resize(intrinsic)
	if !viewport.Empty() {
		c.display = viewport.Size()
	}
}

// Render clears the canvas and draws hand onto it. A nil hand leaves the
// canvas clear. With a zero intrinsic size nothing happens at all.
func (r *Renderer) Render(c *Canvas, intrinsic image.Point, hand *detector.LandmarkFrame) {
	if intrinsic.X <= 0 || intrinsic.Y <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resize(intrinsic)
	c.clear()
	if hand == nil || !c.drawable() {
		return
	}

	pts := project(hand, intrinsic)
	for _, edge := range detector.HandConnections {
		gocv.Line(&c.buf, pts[edge[0]], pts[edge[1]], r.style.EdgeColor, r.style.EdgeWidth)
	}
	for _, p := range pts {
		gocv.Circle(&c.buf, p, r.style.PointRadius, r.style.PointColor, -1)
	}
	c.hand = hand
}

// project maps normalized landmarks to pixel coordinates.
func project(hand *detector.LandmarkFrame, size image.Point) [detector.NumLandmarks]image.Point {
	var out [detector.NumLandmarks]image.Point
	for i, p := range hand.Points {
		out[i] = image.Point{
			X: int(p.X * float64(size.X)),
			Y: int(p.Y * float64(size.Y)),
		}
	}
	return out
}

// Composite returns a copy of frame with the canvas blended on top and text
// centered near the bottom edge. The caller closes the returned Mat.
func (r *Renderer) Composite(frame *gocv.Mat, c *Canvas, text string) gocv.Mat {
	out := frame.Clone()

	c.mu.Lock()
	if c.drawable() && c.buf.Cols() == out.Cols() && c.buf.Rows() == out.Rows() {
		blend(&out, &c.buf)
	}
	c.mu.Unlock()

	if text != "" {
		font := gocv.FontHersheySimplex
		size := gocv.GetTextSize(text, font, r.style.TextScale, r.style.TextWidth)
		origin := image.Point{X: (out.Cols() - size.X) / 2, Y: out.Rows() - 40}
		gocv.PutText(&out, text, origin, font, r.style.TextScale, r.style.TextColor, r.style.TextWidth)
	}

	return out
}

// blend copies the opaque pixels of the BGRA overlay onto the BGR frame.
func blend(frame *gocv.Mat, overlay *gocv.Mat) {
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(*overlay, &bgr, gocv.ColorBGRAToBGR)

	channels := gocv.Split(*overlay)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()

	bgr.CopyToWithMask(frame, channels[3])
}
