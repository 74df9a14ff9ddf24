package sparkles

import "github.com/Faultbox/glint/pkg/curve"

// Animate writes the intensity at time t (seconds) into Shape.W of every
// vertex. Each quad is offset into the looped intensity curve by its phase.
func (m *Mesh) Animate(settings Settings, t float32) {
	intensity := settings.Intensity
	intensity.PreWrap = curve.Loop
	intensity.PostWrap = curve.Loop

	duration := intensity.Duration()
	offset := t * settings.AnimationSpeed

	for q, phase := range m.Phases {
		value := intensity.Evaluate(phase*duration + offset)
		for corner := range 4 {
			m.Shape[q*4+corner].W = value
		}
	}
}
