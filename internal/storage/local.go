// AngelaMos | 2026
// local.go

// Package storage keeps uploaded proof and identity documents on local disk
// and hands back an opaque reference that is stored on the owning row.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/pamojakenya/backend/internal/config"
	"github.com/pamojakenya/backend/internal/core"
)

// sniffLen is how much of an upload is buffered for content detection.
const sniffLen = 3072

var AllowedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
}

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrTooLarge        = errors.New("document too large")
)

type Local struct {
	root     string
	maxBytes int64
	now      func() time.Time
}

func NewLocal(cfg config.StorageConfig) (*Local, error) {
	root, err := filepath.Abs(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Local{
		root:     root,
		maxBytes: cfg.MaxUploadBytes,
		now:      time.Now,
	}, nil
}

// Save sniffs the content of r, rejects anything that is not a PDF, JPEG or
// PNG, and writes it under prefix. The returned reference is relative to
// the upload root and never contains the client supplied filename.
func (s *Local) Save(
	ctx context.Context,
	prefix, filename string,
	r io.Reader,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", fmt.Errorf("%s is empty: %w", filename, core.ErrValidation)
	}

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), AllowedTypes...) {
		return "", fmt.Errorf(
			"%s (%s): %w: %w",
			filename, mtype.String(), ErrUnsupportedType, core.ErrValidation,
		)
	}

	ref := path.Join(
		cleanPrefix(prefix),
		s.now().UTC().Format("2006/01"),
		uuid.New().String()+mtype.Extension(),
	)
	dst := filepath.Join(s.root, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	src := io.MultiReader(bytes.NewReader(head), r)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}

	written, err := io.Copy(out, src)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = fmt.Errorf("%s exceeds %d bytes: %w: %w",
			filename, s.maxBytes, ErrTooLarge, core.ErrValidation)
	}
	if err != nil {
		_ = os.Remove(dst) //nolint:errcheck // best-effort cleanup
		return "", fmt.Errorf("write upload: %w", err)
	}

	return ref, nil
}

// Open returns the stored document for ref.
func (s *Local) Open(ref string) (*os.File, error) {
	p, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open document: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return f, nil
}

// Delete removes ref. A missing file is not an error.
func (s *Local) Delete(_ context.Context, ref string) error {
	p, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Ping reports whether the upload root is still a writable directory.
func (s *Local) Ping(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat upload dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload dir %s is not a directory", s.root)
	}

	probe, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("upload dir not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()   //nolint:errcheck // probe file
	_ = os.Remove(name) //nolint:errcheck // probe file
	return nil
}

func (s *Local) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)
	if clean == "/" || strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid document reference: %w", core.ErrValidation)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func cleanPrefix(prefix string) string {
	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	if prefix == "" || prefix == "." {
		return "misc"
	}
	return prefix
}

// Upload is a document streamed from a multipart form.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Serve streams ref to the client with range and caching support.
func (s *Local) Serve(w http.ResponseWriter, r *http.Request, ref string) {
	f, err := s.Open(ref)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	defer f.Close() //nolint:errcheck // read-only

	info, err := f.Stat()
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "inline; filename=\""+path.Base(ref)+"\"")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, path.Base(ref), info.ModTime(), f)
}
