package staging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cenkalti/dominantcolor"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/civicweb/cms/internal/asset"
)

// Role is the slot an uploaded part is destined for.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleThumbnail Role = "thumbnail"
	RoleCover     Role = "cover"
	RoleGallery   Role = "gallery"
)

func (r Role) imageOnly() bool {
	return r != RolePrimary
}

const paletteSize = 4

var documentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.ms-excel",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/vnd.oasis.opendocument.presentation",
}

// Stager materializes multipart file parts as local files that the remote
// store can upload from.
type Stager struct {
	dir           string
	maxBytes      int64
	maxImageBytes int64
	log           *slog.Logger
}

type Option func(*Stager)

// WithDir sets the directory staged files are written to. Empty means the
// OS temp dir.
func WithDir(dir string) Option {
	return func(s *Stager) { s.dir = dir }
}

func WithMaxBytes(n int64) Option {
	return func(s *Stager) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithMaxImageBytes caps image parts of any role.
func WithMaxImageBytes(n int64) Option {
	return func(s *Stager) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

func New(log *slog.Logger, opts ...Option) *Stager {
	if log == nil {
		log = slog.Default()
	}
	s := &Stager{
		maxBytes:      200 << 20,
		maxImageBytes: 20 << 20,
		log:           log.With(slog.String("component", "staging")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewBatch starts a request-scoped set of staged files. The caller must
// Close the batch once the request finishes, whatever its outcome.
func (s *Stager) NewBatch() *Batch {
	return &Batch{s: s}
}

type Batch struct {
	s     *Stager
	mu    sync.Mutex
	paths []string
}

// Add copies one part to local disk and checks it against the role's size
// and content-type rules.
func (b *Batch) Add(role Role, fh *multipart.FileHeader) (asset.StagedFile, error) {
	if fh == nil {
		return asset.StagedFile{}, fmt.Errorf("staging %s: nil file header", role)
	}
	limit := b.s.maxBytes
	if role.imageOnly() {
		limit = b.s.maxImageBytes
	}
	if fh.Size > limit {
		return asset.StagedFile{}, tooLarge(fh.Filename, limit)
	}

	src, err := fh.Open()
	if err != nil {
		return asset.StagedFile{}, fmt.Errorf("open part %s: %w", fh.Filename, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.CreateTemp(b.s.dir, "stage-*"+ext)
	if err != nil {
		return asset.StagedFile{}, fmt.Errorf("create staged file: %w", err)
	}
	b.track(dst.Name())

	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return asset.StagedFile{}, fmt.Errorf("write staged file %s: %w", fh.Filename, err)
	}
	if n == 0 {
		return asset.StagedFile{}, asset.ValidationError{
			Code:    "empty_file",
			Message: fmt.Sprintf("%s is empty", fh.Filename),
		}
	}
	if n > limit {
		return asset.StagedFile{}, tooLarge(fh.Filename, limit)
	}

	mt, err := mimetype.DetectFile(dst.Name())
	if err != nil {
		return asset.StagedFile{}, fmt.Errorf("detect content type of %s: %w", fh.Filename, err)
	}
	ct := mt.String()
	if !allowed(role, mt) {
		return asset.StagedFile{}, asset.ValidationError{
			Code:    "unsupported_type",
			Message: fmt.Sprintf("%s: %s is not accepted as %s", fh.Filename, ct, role),
		}
	}
	isImage := strings.HasPrefix(ct, "image/")
	if isImage && n > b.s.maxImageBytes {
		return asset.StagedFile{}, tooLarge(fh.Filename, b.s.maxImageBytes)
	}

	f := asset.StagedFile{
		Path:        dst.Name(),
		Filename:    fh.Filename,
		ContentType: ct,
		Size:        n,
	}
	if isImage {
		f.Palette = b.s.palette(dst.Name())
	}
	return f, nil
}

// AddAll stages parts in order and stops at the first rejected one.
func (b *Batch) AddAll(role Role, fhs []*multipart.FileHeader) ([]asset.StagedFile, error) {
	out := make([]asset.StagedFile, 0, len(fhs))
	for _, fh := range fhs {
		f, err := b.Add(role, fh)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Close removes every file the batch staged. It is safe to call more than once.
func (b *Batch) Close() error {
	b.mu.Lock()
	paths := b.paths
	b.paths = nil
	b.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		b.s.log.Warn("staged_file_cleanup_failed", slog.String("err", err.Error()))
		return err
	}
	return nil
}

func (b *Batch) track(p string) {
	b.mu.Lock()
	b.paths = append(b.paths, p)
	b.mu.Unlock()
}

func (s *Stager) palette(p string) []string {
	f, err := os.Open(p)
	if err != nil {
		return nil
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		s.log.Debug("palette_skipped", slog.String("path", p), slog.String("err", err.Error()))
		return nil
	}
	colors := dominantcolor.FindN(img, paletteSize)
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		out = append(out, fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
	}
	return out
}

func allowed(role Role, mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		ct := m.String()
		if strings.HasPrefix(ct, "image/") {
			return true
		}
		if role.imageOnly() {
			continue
		}
		if strings.HasPrefix(ct, "video/") {
			return true
		}
		if slices.Contains(documentTypes, ct) {
			return true
		}
	}
	return false
}

func tooLarge(name string, limit int64) error {
	return asset.ValidationError{
		Code:    "file_too_large",
		Message: fmt.Sprintf("%s exceeds the %d byte limit", name, limit),
	}
}
