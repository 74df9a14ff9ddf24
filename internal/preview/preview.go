// Package preview rasterizes sparkle meshes to still images.
package preview

import (
	"cmp"
	"image"
	"image/color"
	gomath "math"
	"slices"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/Faultbox/glint/internal/sparkles"
	"github.com/Faultbox/glint/pkg/math"
)

// Options controls the camera and look of a preview.
type Options struct {
	Width, Height int
	Supersample   int // render at this multiple, then downsample

	Yaw, Pitch float32 // orbit angles in degrees
	Distance   float32 // camera distance; 0 fits the bounds
	FOV        float32 // vertical field of view in degrees

	Background color.NRGBA
	Color      color.NRGBA
	QuadScale  float32 // world size of a size-1 sparkle; 0 derives it from the bounds
}

// DefaultOptions returns a 512x512 three-quarter view.
func DefaultOptions() Options {
	return Options{
		Width:       512,
		Height:      512,
		Supersample: 2,
		Yaw:         30,
		Pitch:       20,
		FOV:         45,
		Background:  color.NRGBA{A: 255},
		Color:       color.NRGBA{R: 255, G: 244, B: 214, A: 255},
	}
}

// projected is a quad in canvas pixels.
type projected struct {
	corners [4]math.Vec2
	depth   float32
	alpha   float32
}

// Render draws every quad of mesh as a filled, rotated square facing the
// camera. Quad opacity follows the intensity in Shape.W, so animate the
// mesh first.
func Render(mesh *sparkles.Mesh, opts Options) *image.NRGBA {
	ss := max(opts.Supersample, 1)
	w, h := max(opts.Width, 1)*ss, max(opts.Height, 1)*ss

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	quads := project(mesh, opts, w, h)

	// Painter's order, far to near
	slices.SortStableFunc(quads, func(a, b projected) int {
		return cmp.Compare(b.depth, a.depth)
	})

	bounds := canvas.Bounds()
	for _, q := range quads {
		fill(canvas, bounds, q, opts.Color)
	}

	return downsample(canvas, max(opts.Width, 1), max(opts.Height, 1))
}

// project maps every visible quad to canvas space.
func project(mesh *sparkles.Mesh, opts Options, w, h int) []projected {
	bounds := mesh.Bounds
	if bounds.Size().Length() == 0 {
		bounds = math.BoundsOf(mesh.Positions)
	}
	center := bounds.Center()
	radius := max(bounds.Size().Length()/2, 1e-3)

	fov := opts.FOV
	if fov <= 0 || fov >= 180 {
		fov = 45
	}
	halfFov := float64(fov) * gomath.Pi / 360

	distance := opts.Distance
	if distance <= 0 {
		distance = radius / float32(gomath.Sin(halfFov)) * 1.1
	}

	quadScale := opts.QuadScale
	if quadScale <= 0 {
		quadScale = radius * 0.04
	}

	yaw := float64(opts.Yaw) * gomath.Pi / 180
	pitch := float64(min(max(opts.Pitch, -89), 89)) * gomath.Pi / 180
	dir := math.Vec3{
		X: float32(gomath.Cos(pitch) * gomath.Sin(yaw)),
		Y: float32(gomath.Sin(pitch)),
		Z: float32(gomath.Cos(pitch) * gomath.Cos(yaw)),
	}
	eye := center.Add(dir.Scale(distance))

	near := max(distance-radius*2, distance*0.01)
	far := distance + radius*2
	view := math.LookAt(eye, center, math.Vec3{Y: 1})
	viewProj := math.Perspective(float32(halfFov*2), float32(w)/float32(h), near, far).Mul(view)

	// Pixels per world unit at unit depth
	focal := float32(h) / 2 / float32(gomath.Tan(halfFov))

	var out []projected
	for q := range mesh.QuadCount() {
		first := q * 4
		shape := mesh.Shape[first]
		alpha := min(max(shape.W, 0), 1)
		if shape.Z <= 0 || alpha == 0 {
			continue
		}

		p := mesh.Center(q)
		depth := -view.TransformPoint(p).Z
		if depth <= near {
			continue
		}
		ndc, ok := viewProj.Project(p)
		if !ok || ndc.Z < -1 || ndc.Z > 1 {
			continue
		}

		sx := (ndc.X*0.5 + 0.5) * float32(w)
		sy := (0.5 - ndc.Y*0.5) * float32(h)
		extent := shape.Z * quadScale * focal / depth

		var pq projected
		for corner := range 4 {
			s := mesh.Shape[first+corner]
			pq.corners[corner] = math.Vec2{X: sx + s.X*extent, Y: sy - s.Y*extent}
		}
		pq.depth = depth
		pq.alpha = alpha
		out = append(out, pq)
	}
	return out
}

// fill rasterizes one quad into a rasterizer sized to its clipped bounding box.
func fill(canvas *image.RGBA, bounds image.Rectangle, q projected, c color.NRGBA) {
	minX, minY := q.corners[0].X, q.corners[0].Y
	maxX, maxY := minX, minY
	for _, p := range q.corners[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	r := image.Rect(
		int(gomath.Floor(float64(minX))), int(gomath.Floor(float64(minY))),
		int(gomath.Ceil(float64(maxX))), int(gomath.Ceil(float64(maxY))),
	).Intersect(bounds)
	if r.Empty() {
		return
	}

	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.MoveTo(q.corners[0].X-ox, q.corners[0].Y-oy)
	for _, p := range q.corners[1:] {
		z.LineTo(p.X-ox, p.Y-oy)
	}
	z.ClosePath()

	c.A = uint8(float32(c.A)*q.alpha + 0.5)
	z.Draw(canvas, r, image.NewUniform(c), image.Point{})
}

// downsample scales a premultiplied canvas to the target size and converts it
// to straight alpha.
func downsample(canvas *image.RGBA, width, height int) *image.NRGBA {
	dst := canvas
	if canvas.Bounds().Dx() != width || canvas.Bounds().Dy() != height {
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
	}

	result := image.NewNRGBA(dst.Bounds())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			si := dst.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				result.Pix[di] = clamp8(float64(dst.Pix[si]) * inv)
				result.Pix[di+1] = clamp8(float64(dst.Pix[si+1]) * inv)
				result.Pix[di+2] = clamp8(float64(dst.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = dst.Pix[si+3]
		}
	}
	return result
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
