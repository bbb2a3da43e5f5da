package prompt

import "storyboard-server/modules/common/model"

// stylePrefixes - fixed prefix per visual style, emitted as the first segment
// of every image prompt
var stylePrefixes = map[model.VisualStyle]string{
	model.StyleCinematic: "Phong cách Điện ảnh",
	model.StyleAnime:     "Phong cách Hoạt hình Anime",
	model.StyleRealistic: "Phong cách Chân thực",
}

// CameraAngles - the full shot/camera-movement vocabulary. "None" means no
// explicit framing; sub-shot sampling always excludes it.
var CameraAngles = []string{
	"None",
	"Wide Shot",
	"Medium Shot",
	"Close-up",
	"Extreme Close-up",
	"Over-the-Shoulder",
	"Low Angle",
	"High Angle",
	"Dutch Angle",
	"Tracking Shot",
}

// CuttingStyles - editing patterns for sequencing sub-shots within one scene
var CuttingStyles = []string{
	"Hard Cut",
	"Jump Cut",
	"Match Cut",
	"Cross Cut",
	"Cutaway",
	"Smash Cut",
	"Cutting on Action",
	"None",
}

// Transitions - scene-to-scene transition vocabulary
var Transitions = []string{
	"None",
	"Fade",
	"Dissolve",
	"Wipe",
	"Cut to Black",
}

// pace - speed/intensity of camera movement wording, derived from the scene's
// emotional tone
type pace int

const (
	paceNeutral pace = iota
	paceFast
	paceSlow
)

// fastToneKeywords / slowToneKeywords - substring bundles matched
// case-insensitively against the emotional tone string
var fastToneKeywords = []string{
	"urgent", "tense", "dramatic", "intense", "chaotic",
	"thrilling", "frantic", "angry", "terrifying", "desperate",
}

var slowToneKeywords = []string{
	"calm", "peaceful", "sad", "melancholic", "gentle",
	"serene", "quiet", "nostalgic", "somber", "dreamy",
}

// movement - camera-movement description variants per pace
type movement struct {
	Neutral string
	Fast    string
	Slow    string
}

// movementTable - camera angle name → movement description. Every non-None
// entry of CameraAngles must have a row here.
var movementTable = map[string]movement{
	"Wide Shot": {
		Neutral: "a steady establishing pan across the full space",
		Fast:    "a sweeping whip pan across the full space",
		Slow:    "a gentle drifting pan across the full space",
	},
	"Medium Shot": {
		Neutral: "the camera dollies in at a measured pace",
		Fast:    "the camera punches in sharply",
		Slow:    "the camera eases in gradually",
	},
	"Close-up": {
		Neutral: "the camera holds tight on the subject's expression",
		Fast:    "the camera snaps tight onto the subject's expression",
		Slow:    "the camera lingers softly on the subject's expression",
	},
	"Extreme Close-up": {
		Neutral: "a macro push onto a single telling detail",
		Fast:    "a rapid crash zoom onto a single telling detail",
		Slow:    "a slow creeping push onto a single telling detail",
	},
	"Over-the-Shoulder": {
		Neutral: "an over-the-shoulder frame tracking the exchange",
		Fast:    "an urgent handheld over-the-shoulder frame",
		Slow:    "a calm over-the-shoulder frame observing the exchange",
	},
	"Low Angle": {
		Neutral: "a low angle tilt-up that makes the subject loom",
		Fast:    "a fast low angle tilt-up that makes the subject tower overhead",
		Slow:    "a slow low angle tilt-up lifting toward the subject",
	},
	"High Angle": {
		Neutral: "a high angle looking down as the camera descends",
		Fast:    "a plunging high angle dive toward the subject",
		Slow:    "a floating high angle drifting down toward the subject",
	},
	"Dutch Angle": {
		Neutral: "a tilted dutch angle sliding sideways",
		Fast:    "a jarring dutch angle whipping sideways",
		Slow:    "a queasy dutch angle leaning slowly sideways",
	},
	"Tracking Shot": {
		Neutral: "a tracking move following the subject",
		Fast:    "a breathless tracking sprint alongside the subject",
		Slow:    "a smooth gliding track alongside the subject",
	},
}

// cuttingTemplate - sentence templates per cutting style. Two is used when at
// least two sub-shots exist (%s twice), One when only one does (%s once).
type cuttingTemplate struct {
	Two string
	One string
}

var cuttingTemplates = map[string]cuttingTemplate{
	"Hard Cut": {
		Two: "The sequence opens on %s, then hard cuts directly to %s.",
		One: "The sequence holds on %s before a single hard cut.",
	},
	"Jump Cut": {
		Two: "Jump cuts skip forward in time from %s to %s.",
		One: "Jump cuts stutter forward within %s.",
	},
	"Match Cut": {
		Two: "%s match cuts into %s on a shared shape.",
		One: "%s resolves through a match cut on a shared shape.",
	},
	"Cross Cut": {
		Two: "The edit cross cuts back and forth between %s and %s.",
		One: "The edit cross cuts between %s and the surrounding space.",
	},
	"Cutaway": {
		Two: "From %s the edit briefly cuts away to %s before returning.",
		One: "From %s the edit briefly cuts away to a telling detail.",
	},
	"Smash Cut": {
		Two: "%s smash cuts abruptly into %s.",
		One: "%s ends on an abrupt smash cut.",
	},
	"Cutting on Action": {
		Two: "Cutting on action carries the movement from %s into %s.",
		One: "Cutting on action carries the movement through %s.",
	},
	"None": {
		Two: "%s flows into %s in one continuous take.",
		One: "%s plays out in one continuous take.",
	},
}

// genericCuttingSentence - substituted when no sub-shots were generated,
// regardless of the chosen cutting style
const genericCuttingSentence = "The shots are assembled in a simple continuous sequence."

// simpleClosingSentence - fixed closing for the non-advanced video prompt path
const simpleClosingSentence = "The camera holds a steady single shot for the full scene."
