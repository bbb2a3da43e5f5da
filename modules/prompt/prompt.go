package prompt

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"storyboard-server/modules/common/model"
)

// Synthesizer derives the image and video prompts of a scene from its
// structured fields and the characters/locations it references. The image
// prompt is fully deterministic; the video prompt samples 2-3 camera sub-shots
// through the injected random source, so callers that need reproducible output
// can pass a seeded rand.Rand.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New - synthesizer with the given random source. A nil rng falls back to a
// time-seeded source.
func New(rng *rand.Rand) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Synthesizer{rng: rng}
}

// ImagePrompt composes the comma-joined image prompt. Segment order is fixed:
// style prefix, shot type, action + characters, tone, location/setting +
// lighting, palette, vfx. Empty segments are skipped entirely.
func (s *Synthesizer) ImagePrompt(sc model.Scene, characters []model.Character, locations []model.Location) string {
	charNames := namesFor(sc.CharacterIDs, characterNames(characters))
	locNames := namesFor(sc.LocationIDs, locationNames(locations))

	var segs []string

	if prefix, ok := stylePrefixes[sc.Style]; ok {
		segs = append(segs, prefix)
	}

	if sc.CameraAngle != "" && sc.CameraAngle != "None" {
		segs = append(segs, sc.CameraAngle)
	}

	if sc.Action != "" {
		action := sc.Action
		if len(charNames) > 0 {
			action += ", featuring " + joinNames(charNames)
		}
		segs = append(segs, action)
	} else if len(charNames) > 0 {
		segs = append(segs, "featuring "+joinNames(charNames))
	}

	if sc.EmotionalTone != "" {
		segs = append(segs, sc.EmotionalTone+" atmosphere")
	}

	switch {
	case len(locNames) > 0:
		segs = append(segs, "set in "+strings.Join(locNames, ", "))
	case sc.Setting != "":
		segs = append(segs, "set in "+sc.Setting)
	}
	if sc.Lighting != "" {
		segs = append(segs, sc.Lighting+" lighting")
	}

	if sc.ColorPalette != "" {
		segs = append(segs, sc.ColorPalette+" color palette")
	}

	if sc.VisualEffects != "" && sc.VisualEffects != "None" {
		segs = append(segs, sc.VisualEffects)
	}

	return strings.Join(segs, ", ")
}

// VideoPrompt composes the video prompt: core action clause, then either the
// fixed single-shot closing (advanced settings off) or a sampled sub-shot
// sequence with a cutting-style sentence, followed by atmosphere and
// transition clauses.
func (s *Synthesizer) VideoPrompt(sc model.Scene, characters []model.Character, locations []model.Location) string {
	charNames := namesFor(sc.CharacterIDs, characterNames(characters))
	locNames := namesFor(sc.LocationIDs, locationNames(locations))

	var groups []string
	groups = append(groups, coreActionClause(sc, charNames, locNames))

	if !sc.UseAdvancedVideoSettings {
		groups = append(groups, simpleClosingSentence)
	} else {
		subShots := s.sampleSubShots(sc.EmotionalTone)
		groups = append(groups, cuttingSequence(sc.CuttingStyle, subShots))
	}

	if atmos := atmosphereClause(sc); atmos != "" {
		groups = append(groups, atmos)
	}

	if sc.Transition != "" && sc.Transition != "None" {
		groups = append(groups, fmt.Sprintf("The scene ends with a %s transition into the next scene.", sc.Transition))
	}

	return collapseWhitespace(strings.Join(groups, " "))
}

// coreActionClause - one sentence combining action, character names and
// location/setting. Always emitted verbatim at the head of the video prompt.
func coreActionClause(sc model.Scene, charNames, locNames []string) string {
	var b strings.Builder

	if sc.Action != "" {
		b.WriteString(sc.Action)
	} else {
		b.WriteString("A quiet moment unfolds")
	}

	if len(charNames) > 0 {
		b.WriteString(", performed by ")
		b.WriteString(joinNames(charNames))
	}

	switch {
	case len(locNames) > 0:
		b.WriteString(", in ")
		b.WriteString(strings.Join(locNames, ", "))
	case sc.Setting != "":
		b.WriteString(", in ")
		b.WriteString(sc.Setting)
	}

	b.WriteString(".")
	return b.String()
}

// sampleSubShots draws 2 or 3 camera angles (60/40 weighted) without
// replacement from the non-None vocabulary and renders each through the
// movement table, modulated by the scene's emotional tone.
func (s *Synthesizer) sampleSubShots(emotionalTone string) []string {
	s.mu.Lock()
	count := 2
	if s.rng.Float64() < 0.4 {
		count = 3
	}

	pool := make([]string, 0, len(CameraAngles))
	for _, angle := range CameraAngles {
		if angle != "None" {
			pool = append(pool, angle)
		}
	}
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	s.mu.Unlock()

	if count > len(pool) {
		count = len(pool)
	}

	p := toneToPace(emotionalTone)
	shots := make([]string, 0, count)
	for _, angle := range pool[:count] {
		shots = append(shots, MovementFor(angle, p))
	}
	return shots
}

// MovementFor - movement description for an angle at the pace derived from
// tone matching. Exported alongside MovementDescriptions for table tests.
func MovementFor(angle string, p pace) string {
	m, ok := movementTable[angle]
	if !ok {
		return ""
	}
	switch p {
	case paceFast:
		return m.Fast
	case paceSlow:
		return m.Slow
	default:
		return m.Neutral
	}
}

// MovementDescriptions - every movement string for an angle, for vocabulary
// membership checks in tests and UI hints
func MovementDescriptions(angle string) []string {
	m, ok := movementTable[angle]
	if !ok {
		return nil
	}
	return []string{m.Neutral, m.Fast, m.Slow}
}

// PaceFor - exported tone classification used by MovementFor
func PaceFor(emotionalTone string) pace {
	return toneToPace(emotionalTone)
}

func toneToPace(emotionalTone string) pace {
	tone := strings.ToLower(emotionalTone)
	for _, kw := range fastToneKeywords {
		if strings.Contains(tone, kw) {
			return paceFast
		}
	}
	for _, kw := range slowToneKeywords {
		if strings.Contains(tone, kw) {
			return paceSlow
		}
	}
	return paceNeutral
}

// cuttingSequence - the cutting-style sentence referencing the first one or
// two sub-shot descriptions. Zero sub-shots always yields the generic
// sentence, whatever the style.
func cuttingSequence(cuttingStyle string, subShots []string) string {
	if len(subShots) == 0 {
		return genericCuttingSentence
	}

	tmpl, ok := cuttingTemplates[cuttingStyle]
	if !ok {
		tmpl = cuttingTemplates["None"]
	}

	var sentence string
	if len(subShots) >= 2 {
		sentence = fmt.Sprintf(tmpl.Two, subShots[0], subShots[1])
	} else {
		sentence = fmt.Sprintf(tmpl.One, subShots[0])
	}

	// Sub-shots beyond the two the template references still appear, so the
	// video model sees the full sampled sequence.
	if len(subShots) > 2 {
		sentence += " The sequence closes on " + subShots[2] + "."
	}

	return upperFirst(sentence)
}

// atmosphereClause - lighting/tone/palette/vfx joined with commas, skipping
// empty fields; empty result when nothing is set
func atmosphereClause(sc model.Scene) string {
	var parts []string
	if sc.Lighting != "" {
		parts = append(parts, sc.Lighting+" lighting")
	}
	if sc.EmotionalTone != "" {
		parts = append(parts, "a "+sc.EmotionalTone+" mood")
	}
	if sc.ColorPalette != "" {
		parts = append(parts, "a "+sc.ColorPalette+" color palette")
	}
	if sc.VisualEffects != "" && sc.VisualEffects != "None" {
		parts = append(parts, sc.VisualEffects)
	}
	if len(parts) == 0 {
		return ""
	}
	return "The atmosphere features " + strings.Join(parts, ", ") + "."
}

func characterNames(characters []model.Character) map[string]string {
	byID := make(map[string]string, len(characters))
	for _, c := range characters {
		byID[c.ID] = c.Name
	}
	return byID
}

func locationNames(locations []model.Location) map[string]string {
	byID := make(map[string]string, len(locations))
	for _, l := range locations {
		byID[l.ID] = l.Name
	}
	return byID
}

// namesFor resolves referenced IDs to names, silently dropping dangling IDs
func namesFor(ids []string, byID map[string]string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

func joinNames(names []string) string {
	if len(names) <= 1 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
