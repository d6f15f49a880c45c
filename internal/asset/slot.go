package asset

import "fmt"

type SourceMode string

const (
	ModeUpload SourceMode = "upload"
	ModeLink   SourceMode = "link"
)

func ParseSourceMode(s string) (SourceMode, error) {
	switch m := SourceMode(s); m {
	case ModeUpload, ModeLink:
		return m, nil
	}
	return "", ValidationError{Code: "invalid_source_mode", Message: fmt.Sprintf("unknown source mode %q", s)}
}

// PrimarySlot is the single main asset of an entity. Once filled, exactly
// one of File and ExternalURL is set, matching Mode. Thumbnail is
// independent of Mode.
type PrimarySlot struct {
	Mode        SourceMode
	File        *Reference
	ExternalURL string
	Thumbnail   *Reference
}

func (s PrimarySlot) Empty() bool {
	return s.Mode == "" && s.File == nil && s.ExternalURL == "" && s.Thumbnail == nil
}

// Validate checks the mode exclusivity invariant.
func (s PrimarySlot) Validate() error {
	if s.File != nil && !s.File.Complete() {
		return fmt.Errorf("primary slot holds an incomplete file reference")
	}
	if s.Thumbnail != nil && !s.Thumbnail.Complete() {
		return fmt.Errorf("primary slot holds an incomplete thumbnail reference")
	}
	switch s.Mode {
	case "":
		if s.File != nil || s.ExternalURL != "" {
			return fmt.Errorf("primary slot has content but no source mode")
		}
	case ModeUpload:
		if s.File == nil || s.ExternalURL != "" {
			return fmt.Errorf("upload slot must hold a file and no link")
		}
	case ModeLink:
		if s.File != nil || s.ExternalURL == "" {
			return fmt.Errorf("link slot must hold a link and no file")
		}
	default:
		return fmt.Errorf("unknown source mode %q", s.Mode)
	}
	return nil
}

// Owned enumerates every stored object the slot references.
func (s PrimarySlot) Owned() []Reference {
	return Collect(s.File, s.Thumbnail)
}

// EffectiveCover returns the explicit cover file if set, else the first
// gallery image.
func EffectiveCover(cover PrimarySlot, gallery []Reference) *Reference {
	if cover.File != nil {
		c := *cover.File
		return &c
	}
	if len(gallery) > 0 {
		g := gallery[0]
		return &g
	}
	return nil
}
