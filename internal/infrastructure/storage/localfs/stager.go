package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

const DefaultMaxBytes int64 = 20 << 20

var pdfMagic = []byte("%PDF-")

// Stager writes uploads to a local staging directory for the lifetime of one request.
type Stager struct {
	dir        string
	maxBytes   int64
	inspectPDF bool
}

type Options struct {
	MaxBytes   int64
	InspectPDF bool
}

func New(dir string, options Options) (*Stager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "pdf-analysis-gateway")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	maxBytes := options.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Stager{
		dir:        dir,
		maxBytes:   maxBytes,
		inspectPDF: options.InspectPDF,
	}, nil
}

func (s *Stager) MaxBytes() int64 {
	return s.maxBytes
}

// Stage copies body into a new uniquely named file. Uploads larger than the
// ceiling are rejected with ErrPayloadTooLarge and leave nothing behind.
func (s *Stager) Stage(ctx context.Context, filename string, body io.Reader) (*domain.StagedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrNoFileProvided, "stage upload", errors.New("empty body"))
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename)))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	src := &sourceReader{r: io.LimitReader(body, s.maxBytes+1)}
	head := &headBuffer{limit: len(pdfMagic)}
	n, copyErr := io.Copy(io.MultiWriter(f, head), src)
	closeErr := f.Close()

	switch {
	case src.err != nil:
		s.discard(path)
		return nil, domain.WrapError(domain.ErrInvalidParameter, "read upload", src.err)
	case copyErr != nil:
		s.discard(path)
		return nil, fmt.Errorf("write staged file: %w", copyErr)
	case closeErr != nil:
		s.discard(path)
		return nil, fmt.Errorf("close staged file: %w", closeErr)
	case n > s.maxBytes:
		s.discard(path)
		return nil, domain.WrapError(domain.ErrPayloadTooLarge, "stage upload", fmt.Errorf("file exceeds %d bytes", s.maxBytes))
	}

	staged := &domain.StagedFile{
		LocalPath:    path,
		OriginalName: filename,
		SizeBytes:    n,
	}
	if s.inspectPDF && bytes.HasPrefix(head.buf.Bytes(), pdfMagic) {
		pages, err := countPDFPages(path)
		if err != nil {
			slog.Debug("pdf_inspect_failed", "file", filename, "error", err)
		}
		staged.PageCount = pages
	}
	return staged, nil
}

// Release removes the staged file. A file that is already gone is not an error.
func (s *Stager) Release(_ context.Context, file *domain.StagedFile) error {
	if file == nil || file.LocalPath == "" {
		return nil
	}
	if err := os.Remove(file.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

func (s *Stager) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("staged_file_discard_failed", "path", path, "error", err)
	}
}

// sourceReader remembers read errors so they can be told apart from write errors.
type sourceReader struct {
	r   io.Reader
	err error
}

func (r *sourceReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

type headBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if remaining := h.limit - h.buf.Len(); remaining > 0 {
		if len(p) < remaining {
			remaining = len(p)
		}
		h.buf.Write(p[:remaining])
	}
	return len(p), nil
}

const (
	maxStagedNameBytes = 100
	maxStagedExtBytes  = 16
)

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return truncateFilename(base, maxStagedNameBytes)
}

// truncateFilename keeps the extension when it is short enough to matter.
// Input is already ASCII, so byte slicing is safe.
func truncateFilename(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > maxStagedExtBytes {
		ext = ""
	}
	return name[:limit-len(ext)] + ext
}
