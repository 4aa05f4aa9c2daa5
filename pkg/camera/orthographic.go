package camera

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// OrthographicCamera projects with parallel rays: every ray shares the
// viewing direction and originates on the film plane. Useful for
// diagnostic renders where perspective foreshortening gets in the way.
type OrthographicCamera struct {
	position      core.Vec3
	u, v, forward core.Vec3
	screenWidth   float64 // World-space width of the view rectangle
	screenHeight  float64
	width, height int
	shutterOpen   float64
	shutterClose  float64
}

// OrthographicOptions configures an orthographic camera
type OrthographicOptions struct {
	Position     core.Vec3
	LookAt       core.Vec3
	Up           core.Vec3
	ScreenWidth  float64 // World-space width of the imaged rectangle
	Width        int
	Height       int
	ShutterOpen  float64
	ShutterClose float64
}

// NewOrthographic creates an orthographic camera
func NewOrthographic(opts OrthographicOptions) *OrthographicCamera {
	forward := opts.LookAt.Subtract(opts.Position).Normalize()
	u := forward.Cross(opts.Up).Normalize()
	v := u.Cross(forward)

	aspect := float64(opts.Width) / float64(opts.Height)
	return &OrthographicCamera{
		position:     opts.Position,
		u:            u,
		v:            v,
		forward:      forward,
		screenWidth:  opts.ScreenWidth,
		screenHeight: opts.ScreenWidth / aspect,
		width:        opts.Width,
		height:       opts.Height,
		shutterOpen:  opts.ShutterOpen,
		shutterClose: opts.ShutterClose,
	}
}

// SampleTime maps a uniform sample into the shutter interval
func (c *OrthographicCamera) SampleTime(u float64) float64 {
	return core.Lerp(u, c.shutterOpen, c.shutterClose)
}

// GenerateRay produces the parallel ray through a raster position
func (c *OrthographicCamera) GenerateRay(s Sample) (core.Ray, float64, bool) {
	ndcX := 2*s.PFilm.X/float64(c.width) - 1
	ndcY := 1 - 2*s.PFilm.Y/float64(c.height)

	origin := c.position.
		Add(c.u.Multiply(ndcX * c.screenWidth / 2)).
		Add(c.v.Multiply(ndcY * c.screenHeight / 2))

	r := core.NewRay(origin, c.forward)
	r.Time = c.SampleTime(s.Time)
	return r, 1, true
}

// GenerateRayDifferential produces the ray plus one-pixel offsets
func (c *OrthographicCamera) GenerateRayDifferential(s Sample) (core.RayDifferential, float64, bool) {
	r, weight, ok := c.GenerateRay(s)
	if !ok {
		return core.RayDifferential{}, 0, false
	}

	rd := core.NewRayDifferential(r)
	rd.HasDifferentials = true
	rd.RxOrigin = r.Origin.Add(c.u.Multiply(c.screenWidth / float64(c.width)))
	rd.RyOrigin = r.Origin.Subtract(c.v.Multiply(c.screenHeight / float64(c.height)))
	rd.RxDirection = r.Direction
	rd.RyDirection = r.Direction
	return rd, weight, ok
}

// Position returns the camera origin
func (c *OrthographicCamera) Position() core.Vec3 { return c.position }
