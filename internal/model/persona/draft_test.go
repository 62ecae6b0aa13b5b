package persona

import (
	"errors"
	"testing"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
)

func TestDraftOnboardingStages(t *testing.T) {
	var d Draft

	if d.Stage() != StageName {
		t.Fatalf("expected stage %s, got %s", StageName, d.Stage())
	}

	if err := d.SetName("  Grandma Rose "); err != nil {
		t.Fatalf("SetName err: %v", err)
	}
	if d.Stage() != StagePersonality {
		t.Fatalf("expected stage %s, got %s", StagePersonality, d.Stage())
	}
	if _, ok := d.Persona(); ok {
		t.Fatal("persona should not be available before personality is set")
	}

	if err := d.SetPersonality("Warm, teasing, loved gardening.", "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("SetPersonality err: %v", err)
	}

	p, ok := d.Persona()
	if !ok {
		t.Fatal("expected finalized persona")
	}
	if p.Name != "Grandma Rose" {
		t.Fatalf("expected trimmed name, got %q", p.Name)
	}
	if p.PortraitImage == "" {
		t.Fatal("expected portrait to be kept")
	}
	if d.Stage() != StageReady {
		t.Fatalf("expected stage %s, got %s", StageReady, d.Stage())
	}
}

func TestDraftRejectsBlankInput(t *testing.T) {
	var d Draft

	if err := d.SetName("   "); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if d.Name() != "" {
		t.Fatalf("rejected name must not be stored, got %q", d.Name())
	}

	if err := d.SetName("David"); err != nil {
		t.Fatalf("SetName err: %v", err)
	}
	if err := d.SetPersonality("\n\t", ""); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if d.Stage() != StagePersonality {
		t.Fatalf("failed validation must not advance stage, got %s", d.Stage())
	}
}

func TestDraftPersonalityRequiresName(t *testing.T) {
	var d Draft

	err := d.SetPersonality("Quiet and thoughtful.", "")
	if !apperror.IsPrecondition(err) || !errors.Is(err, ErrNameNotSet) {
		t.Fatalf("expected ErrNameNotSet precondition, got %v", err)
	}
}

func TestDraftRejectsNonImagePortrait(t *testing.T) {
	var d Draft
	_ = d.SetName("David")

	if err := d.SetPersonality("Funny.", "https://example.com/photo.png"); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error for non data URI portrait, got %v", err)
	}
}

func TestDraftImmutableOnceFinalized(t *testing.T) {
	var d Draft
	_ = d.SetName("David")
	_ = d.SetPersonality("Funny.", "")

	if err := d.SetName("Someone else"); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if err := d.SetPersonality("Other.", ""); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}

	p, _ := d.Persona()
	if p.Name != "David" || p.PersonalityProfile != "Funny." {
		t.Fatalf("finalized persona changed: %+v", p)
	}
}

func TestSuggestionsAreComplete(t *testing.T) {
	items := Suggestions()
	if len(items) != 5 {
		t.Fatalf("expected 5 suggestions, got %d", len(items))
	}
	for _, item := range items {
		if item.Title == "" || item.Prompt == "" {
			t.Fatalf("suggestion missing fields: %+v", item)
		}
	}
}
