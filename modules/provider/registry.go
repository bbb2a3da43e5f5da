package provider

import "log"

// Pair - a preferred provider plus an optional alternate used for fallback.
// ready reports whether the alternate is configured with valid credentials;
// fallback is skipped entirely when it returns false.
type Pair[P any] struct {
	Preferred P
	Alternate P
	ready     func() bool
}

// NewPair - pair with an alternate readiness check; nil ready means the
// alternate is usable whenever it is non-nil
func NewPair[P comparable](preferred, alternate P, ready func() bool) Pair[P] {
	if ready == nil {
		var zero P
		alt := alternate
		ready = func() bool { return alt != zero }
	}
	return Pair[P]{Preferred: preferred, Alternate: alternate, ready: ready}
}

// AlternateReady - whether fallback to the alternate is possible
func (p Pair[P]) AlternateReady() bool {
	return p.ready != nil && p.ready()
}

// Registry - the three capability pairs the orchestrator draws from
type Registry struct {
	Text  Pair[TextProvider]
	Image Pair[ImageProvider]
	Video Pair[VideoProvider]
}

// LogSetup - startup summary of which providers are wired
func (r *Registry) LogSetup() {
	log.Printf("🎛️  Text provider: %s (fallback: %s)", name(r.Text.Preferred), name(r.Text.Alternate))
	log.Printf("🎛️  Image provider: %s (fallback: %s)", name(r.Image.Preferred), name(r.Image.Alternate))
	log.Printf("🎛️  Video provider: %s (fallback: %s)", name(r.Video.Preferred), name(r.Video.Alternate))
}

type named interface{ Name() string }

func name(p any) string {
	if n, ok := p.(named); ok && n != nil {
		return n.Name()
	}
	return "none"
}
