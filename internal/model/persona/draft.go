package persona

import (
	"errors"
	"strings"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
)

var (
	ErrNameNotSet = errors.New("persona name must be set first")
	ErrFinalized  = errors.New("persona is already finalized")
)

// Stage 表示引导流程当前所处的步骤。
type Stage string

const (
	StageName        Stage = "name"
	StagePersonality Stage = "personality"
	StageReady       Stage = "ready"
)

// Draft collects persona data through the two onboarding steps.
// It is not safe for concurrent use; the owning session serializes access.
type Draft struct {
	name     string
	profile  string
	portrait string
	ready    bool
}

// Stage reports which onboarding step is pending.
func (d *Draft) Stage() Stage {
	switch {
	case d.ready:
		return StageReady
	case d.name != "":
		return StagePersonality
	default:
		return StageName
	}
}

// SetName records the persona name. It may be changed until the draft is finalized.
func (d *Draft) SetName(name string) error {
	if d.ready {
		return apperror.Precondition("persona.set_name", ErrFinalized)
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return apperror.Validation("persona.set_name", "name is required")
	}

	d.name = trimmed
	return nil
}

// SetPersonality records the profile and optional portrait and finalizes the draft.
func (d *Draft) SetPersonality(profile, image string) error {
	const op = "persona.set_personality"

	if d.ready {
		return apperror.Precondition(op, ErrFinalized)
	}
	if d.name == "" {
		return apperror.Precondition(op, ErrNameNotSet)
	}

	trimmed := strings.TrimSpace(profile)
	if trimmed == "" {
		return apperror.Validation(op, "please describe the personality and style")
	}

	image = strings.TrimSpace(image)
	if image != "" && !strings.HasPrefix(image, "data:image/") {
		return apperror.Validation(op, "portrait must be an image data URI")
	}

	d.profile = trimmed
	d.portrait = image
	d.ready = true
	return nil
}

// Persona returns the finalized persona; ok is false until both steps are done.
func (d *Draft) Persona() (Persona, bool) {
	if !d.ready {
		return Persona{}, false
	}
	return Persona{
		Name:               d.name,
		PersonalityProfile: d.profile,
		PortraitImage:      d.portrait,
	}, true
}

// Name returns the name entered so far.
func (d *Draft) Name() string {
	return d.name
}
