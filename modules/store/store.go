package store

import (
	"errors"
	"sync"

	"storyboard-server/modules/common/model"
)

// ErrIndexOutOfBounds - returned by every index-addressed update or read
// instead of silently ignoring the call
var ErrIndexOutOfBounds = errors.New("entity index out of bounds")

// PromptSynthesizer - the slice of the prompt package the store needs to keep
// derived prompts in sync with structured scene fields
type PromptSynthesizer interface {
	ImagePrompt(sc model.Scene, characters []model.Character, locations []model.Location) string
	VideoPrompt(sc model.Scene, characters []model.Character, locations []model.Location) string
}

// Snapshot - a full copy of the board state, safe for JSON encoding and
// broadcast without further locking
type Snapshot struct {
	Scenes       []model.Scene     `json:"scenes"`
	Characters   []model.Character `json:"characters"`
	Locations    []model.Location  `json:"locations"`
	StoryOutline []string          `json:"storyOutline"`
}

// Store owns the canonical board state. All mutation goes through its methods
// under one mutex; readers get deep-enough copies (slices reallocated, value
// elements) so no caller can alias internal state.
type Store struct {
	mu       sync.RWMutex
	scenes   []model.Scene
	chars    []model.Character
	locs     []model.Location
	outline  []string
	synth    PromptSynthesizer
	onChange func(Snapshot)
}

// New - empty store. onChange fires after every successful mutation with a
// fresh snapshot; nil is allowed.
func New(synth PromptSynthesizer, onChange func(Snapshot)) *Store {
	if onChange == nil {
		onChange = func(Snapshot) {}
	}
	return &Store{synth: synth, onChange: onChange}
}

// Snapshot - copy of everything
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Scenes:       append([]model.Scene(nil), s.scenes...),
		Characters:   append([]model.Character(nil), s.chars...),
		Locations:    append([]model.Location(nil), s.locs...),
		StoryOutline: append([]string(nil), s.outline...),
	}
}

// Scenes - copy of the scene list
func (s *Store) Scenes() []model.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Scene(nil), s.scenes...)
}

// Scene - copy of one scene by index
func (s *Store) Scene(index int) (model.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.scenes) {
		return model.Scene{}, ErrIndexOutOfBounds
	}
	return s.scenes[index], nil
}

// SceneByID - copy of one scene plus its index, false when absent
func (s *Store) SceneByID(id string) (model.Scene, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, sc := range s.scenes {
		if sc.ID == id {
			return sc, i, true
		}
	}
	return model.Scene{}, -1, false
}

// Characters - copy of the character list
func (s *Store) Characters() []model.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Character(nil), s.chars...)
}

// Locations - copy of the location list
func (s *Store) Locations() []model.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Location(nil), s.locs...)
}

// StoryOutline - copy of the outline beats
func (s *Store) StoryOutline() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.outline...)
}

// SetBlueprint replaces characters, locations and outline wholesale, as
// happens when a generated blueprint is accepted
func (s *Store) SetBlueprint(bp model.Blueprint) {
	s.mutate(func() {
		s.chars = append([]model.Character(nil), bp.Characters...)
		s.locs = append([]model.Location(nil), bp.Locations...)
		s.outline = append([]string(nil), bp.StoryOutline...)
	})
}

// SetScenes replaces the scene list wholesale
func (s *Store) SetScenes(scenes []model.Scene) {
	s.mutate(func() {
		s.scenes = append([]model.Scene(nil), scenes...)
	})
}

// AddScene appends a scene and returns its index
func (s *Store) AddScene(sc model.Scene) int {
	var idx int
	s.mutate(func() {
		s.scenes = append(s.scenes, sc)
		idx = len(s.scenes) - 1
	})
	return idx
}

// RemoveScene deletes a scene by index. Characters and locations it referenced
// are untouched.
func (s *Store) RemoveScene(index int) error {
	return s.mutateIndexed(index, func() int { return len(s.scenes) }, func() {
		s.scenes = append(s.scenes[:index], s.scenes[index+1:]...)
	})
}

// AddCharacter appends a character and returns its index
func (s *Store) AddCharacter(c model.Character) int {
	var idx int
	s.mutate(func() {
		s.chars = append(s.chars, c)
		idx = len(s.chars) - 1
	})
	return idx
}

// RemoveCharacter deletes a character by index. Scenes keep their reference
// IDs; dangling IDs are filtered wherever names are resolved.
func (s *Store) RemoveCharacter(index int) error {
	return s.mutateIndexed(index, func() int { return len(s.chars) }, func() {
		s.chars = append(s.chars[:index], s.chars[index+1:]...)
	})
}

// AddLocation appends a location and returns its index
func (s *Store) AddLocation(l model.Location) int {
	var idx int
	s.mutate(func() {
		s.locs = append(s.locs, l)
		idx = len(s.locs) - 1
	})
	return idx
}

// RemoveLocation deletes a location by index, never cascading into scenes
func (s *Store) RemoveLocation(index int) error {
	return s.mutateIndexed(index, func() int { return len(s.locs) }, func() {
		s.locs = append(s.locs[:index], s.locs[index+1:]...)
	})
}

// UpdateScene applies a partial update. When any prompt-relevant field changed
// and the patch did not set the prompt explicitly, the derived prompts are
// recomputed from the post-update scene.
func (s *Store) UpdateScene(index int, patch ScenePatch) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.scenes) {
		s.mu.Unlock()
		return ErrIndexOutOfBounds
	}

	sc := &s.scenes[index]
	relevant := patch.promptRelevant()
	patch.apply(sc)

	if relevant && s.synth != nil {
		if patch.ImagePrompt == nil {
			sc.ImagePrompt = s.synth.ImagePrompt(*sc, s.chars, s.locs)
		}
		if patch.VideoPrompt == nil {
			sc.VideoPrompt = s.synth.VideoPrompt(*sc, s.chars, s.locs)
		}
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
	return nil
}

// UpdateCharacter applies a partial update by index
func (s *Store) UpdateCharacter(index int, patch CharacterPatch) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.chars) {
		s.mu.Unlock()
		return ErrIndexOutOfBounds
	}
	patch.apply(&s.chars[index])
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
	return nil
}

// UpdateLocation applies a partial update by index
func (s *Store) UpdateLocation(index int, patch LocationPatch) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.locs) {
		s.mu.Unlock()
		return ErrIndexOutOfBounds
	}
	patch.apply(&s.locs[index])
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
	return nil
}

// UpdateSceneByID - convenience wrapper resolving ID to index first
func (s *Store) UpdateSceneByID(id string, patch ScenePatch) error {
	_, idx, ok := s.SceneByID(id)
	if !ok {
		return ErrIndexOutOfBounds
	}
	return s.UpdateScene(idx, patch)
}

// AppendSceneImage adds a generated image to a scene's options under one
// lock, trimming to the newest MaxImageOptions and pointing the main image at
// the new entry. Safe for concurrent generators targeting the same scene.
func (s *Store) AppendSceneImage(sceneID string, img model.UploadedImage) error {
	s.mu.Lock()
	idx := -1
	for i := range s.scenes {
		if s.scenes[i].ID == sceneID {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return ErrIndexOutOfBounds
	}

	sc := &s.scenes[idx]
	sc.ImageOptions = append(sc.ImageOptions, img)
	if len(sc.ImageOptions) > model.MaxImageOptions {
		sc.ImageOptions = sc.ImageOptions[len(sc.ImageOptions)-model.MaxImageOptions:]
	}
	sc.MainImage = len(sc.ImageOptions) - 1

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
	return nil
}

// ReferencedEntities - the characters and locations a scene actually resolves
// to, dangling IDs dropped
func (s *Store) ReferencedEntities(sc model.Scene) ([]model.Character, []model.Location) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chars := make([]model.Character, 0, len(sc.CharacterIDs))
	for _, id := range sc.CharacterIDs {
		for _, c := range s.chars {
			if c.ID == id {
				chars = append(chars, c)
				break
			}
		}
	}
	locs := make([]model.Location, 0, len(sc.LocationIDs))
	for _, id := range sc.LocationIDs {
		for _, l := range s.locs {
			if l.ID == id {
				locs = append(locs, l)
				break
			}
		}
	}
	return chars, locs
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
}

func (s *Store) mutateIndexed(index int, length func() int, fn func()) error {
	s.mu.Lock()
	if index < 0 || index >= length() {
		s.mu.Unlock()
		return ErrIndexOutOfBounds
	}
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
	return nil
}
