package asset

import (
	"fmt"
	"path"
	"strings"
)

type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindImage, KindVideo, KindDocument:
		return k, nil
	}
	return "", fmt.Errorf("unknown asset kind %q", s)
}

// KindFromContentType maps a MIME type to the kind used to pick the
// store's resource type. Anything that is not an image or video is a document.
func KindFromContentType(ct string) Kind {
	ct = strings.ToLower(ct)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	default:
		return KindDocument
	}
}

func KindFromExtension(name string) Kind {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".bmp", ".svg", ".tif", ".tiff":
		return KindImage
	case ".mp4", ".mov", ".webm", ".mkv", ".avi", ".m4v":
		return KindVideo
	default:
		return KindDocument
	}
}

// Reference points at one object held by the remote store. A reference is
// either complete (URL and RemoteID both set) or absent; callers hold
// optional references as *Reference and never persist a partial one.
type Reference struct {
	URL      string
	RemoteID string
	Kind     Kind

	// Palette holds dominant colors of image assets as hex strings.
	// It is display metadata and takes no part in identity.
	Palette []string
}

func (r Reference) Complete() bool {
	return r.URL != "" && r.RemoteID != ""
}

// Same reports whether both references point at the same remote object.
func (r Reference) Same(o Reference) bool {
	return r.RemoteID == o.RemoteID
}

func (r Reference) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.RemoteID)
}

// Distinct drops later duplicates by RemoteID, keeping first-seen order.
func Distinct(refs []Reference) []Reference {
	seen := make(map[string]struct{}, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r.RemoteID]; ok {
			continue
		}
		seen[r.RemoteID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Without returns the references in set whose RemoteID is not in remove.
func Without(set, remove []Reference) []Reference {
	drop := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		drop[r.RemoteID] = struct{}{}
	}
	out := make([]Reference, 0, len(set))
	for _, r := range set {
		if _, ok := drop[r.RemoteID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Intersect returns the references in set whose RemoteID also appears in
// other, in set's order.
func Intersect(set, other []Reference) []Reference {
	keep := make(map[string]struct{}, len(other))
	for _, r := range other {
		keep[r.RemoteID] = struct{}{}
	}
	out := make([]Reference, 0, len(set))
	for _, r := range set {
		if _, ok := keep[r.RemoteID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Lookup resolves client supplied tokens against the references an entity
// currently owns. A token matches a reference by exact RemoteID or URL.
// Unknown tokens are skipped so a client can never introduce a reference
// the entity does not already hold. The result follows token order.
func Lookup(current []Reference, tokens []string) []Reference {
	byID := make(map[string]Reference, len(current))
	byURL := make(map[string]Reference, len(current))
	for _, r := range current {
		byID[r.RemoteID] = r
		byURL[r.URL] = r
	}
	out := make([]Reference, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if r, ok := byID[t]; ok {
			out = append(out, r)
			continue
		}
		if r, ok := byURL[t]; ok {
			out = append(out, r)
		}
	}
	return Distinct(out)
}

// Collect flattens optional references, skipping nil and incomplete ones.
func Collect(refs ...*Reference) []Reference {
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		if r != nil && r.Complete() {
			out = append(out, *r)
		}
	}
	return out
}
