package lights

import (
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// Tags for the closed light-sampler variant set.
const (
	tagUniformSampler = iota + 1
	tagPowerSampler
)

// Sampler picks which light to draw a shadow ray toward; the handle
// dispatches over the uniform and power-proportional strategies.
type Sampler struct {
	w tagged.Word
}

// FromUniformSampler wraps a uniform light sampler
func FromUniformSampler(s *UniformSampler) Sampler {
	tagged.Keep(s)
	return Sampler{w: tagged.Pack(unsafe.Pointer(s), tagUniformSampler)}
}

// FromPowerSampler wraps a power light sampler
func FromPowerSampler(s *PowerSampler) Sampler {
	tagged.Keep(s)
	return Sampler{w: tagged.Pack(unsafe.Pointer(s), tagPowerSampler)}
}

// IsNil reports whether the handle is empty
func (s Sampler) IsNil() bool { return s.w.IsNil() }

// Sample picks a light with probability PMF(light)
func (s Sampler) Sample(u float64) (Light, float64, bool) {
	s.w.CheckDispatch("light sampler")
	switch s.w.Tag() {
	case tagUniformSampler:
		return tagged.As[UniformSampler](s.w).Sample(u)
	default:
		return tagged.As[PowerSampler](s.w).Sample(u)
	}
}

// PMF returns the probability of Sample picking the given light
func (s Sampler) PMF(l Light) float64 {
	s.w.CheckDispatch("light sampler")
	switch s.w.Tag() {
	case tagUniformSampler:
		return tagged.As[UniformSampler](s.w).PMF(l)
	default:
		return tagged.As[PowerSampler](s.w).PMF(l)
	}
}

// UniformSampler picks each light with equal probability
type UniformSampler struct {
	lights []Light
}

// NewUniformSampler creates a uniform light sampler
func NewUniformSampler(lights []Light) *UniformSampler {
	return &UniformSampler{lights: lights}
}

// Sample picks a light uniformly
func (s *UniformSampler) Sample(u float64) (Light, float64, bool) {
	n := len(s.lights)
	if n == 0 {
		return Light{}, 0, false
	}
	i := int(u * float64(n))
	if i >= n {
		i = n - 1
	}
	return s.lights[i], 1 / float64(n), true
}

// PMF is constant across lights
func (s *UniformSampler) PMF(Light) float64 {
	if len(s.lights) == 0 {
		return 0
	}
	return 1 / float64(len(s.lights))
}

// PowerSampler picks lights proportionally to their emitted power,
// estimated at a fixed set of wavelengths when the sampler is built.
type PowerSampler struct {
	lights  []Light
	pmf     []float64
	cdf     []float64
	indexOf map[tagged.Word]int
}

// NewPowerSampler creates a power-proportional light sampler
func NewPowerSampler(lights []Light) *PowerSampler {
	s := &PowerSampler{
		lights:  lights,
		pmf:     make([]float64, len(lights)),
		cdf:     make([]float64, len(lights)),
		indexOf: make(map[tagged.Word]int, len(lights)),
	}

	lambda := spectrum.SampleVisible(0.5)
	total := 0.0
	for i, l := range lights {
		s.pmf[i] = l.Phi(lambda).Average()
		total += s.pmf[i]
		s.indexOf[l.Word()] = i
	}
	if total == 0 {
		// All-black lights degrade to uniform
		for i := range s.pmf {
			s.pmf[i] = 1
			total += 1
		}
	}
	running := 0.0
	for i := range s.pmf {
		s.pmf[i] /= total
		running += s.pmf[i]
		s.cdf[i] = running
	}
	return s
}

// Sample picks a light by inverting the power CDF
func (s *PowerSampler) Sample(u float64) (Light, float64, bool) {
	if len(s.lights) == 0 {
		return Light{}, 0, false
	}
	for i, c := range s.cdf {
		if u < c || i == len(s.cdf)-1 {
			return s.lights[i], s.pmf[i], true
		}
	}
	return Light{}, 0, false
}

// PMF returns the power-proportional probability of a light
func (s *PowerSampler) PMF(l Light) float64 {
	i, ok := s.indexOf[l.Word()]
	if !ok {
		return 0
	}
	return s.pmf[i]
}

// Helpers shared by integrators: partition splits lights into finite
// and infinite groups.
func Partition(all []Light) (finite, infinite []Light) {
	for _, l := range all {
		if l.Type() == Infinite {
			infinite = append(infinite, l)
		} else {
			finite = append(finite, l)
		}
	}
	return finite, infinite
}
