// Package parser opens PDF files as raw.Provider values backed by rsc.io/pdf.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"

	"rsc.io/pdf"

	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/security"
)

// Config controls how documents are opened.
type Config struct {
	Limits security.Limits
}

// DocumentParser opens documents through rsc.io/pdf.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	cfg.Limits = cfg.Limits.WithDefaults()
	return &DocumentParser{cfg: cfg}
}

// Parse reads the cross-reference data of r. Encrypted files that cannot be
// opened with an empty password yield security.ErrEncrypted.
func (p *DocumentParser) Parse(ctx context.Context, r io.ReaderAt, size int64) (doc *Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || declaresEncryption(r, size) {
			return nil, fmt.Errorf("%w: %v", security.ErrEncrypted, err)
		}
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	doc = &Document{r: reader, limits: p.cfg.Limits}
	trailer := reader.Trailer()
	doc.trailer = doc.dict(trailer, objectRef(trailer))
	_, doc.encrypted = raw.Lookup(doc.trailer, "Encrypt")
	doc.version = effectiveVersion(detectHeaderVersion(r), doc)
	return doc, nil
}

// Open opens the file at path. The returned document must be closed.
func Open(path string) (*Document, error) {
	return OpenContext(context.Background(), path, Config{})
}

// OpenContext is Open with a context and configuration.
func OpenContext(ctx context.Context, path string, cfg Config) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	doc, err := NewDocumentParser(cfg).Parse(ctx, f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.closer = f
	return doc, nil
}

// Document is a raw.Provider over a parsed file. rsc.io/pdf does not
// document its reader as safe for concurrent use, so object access is
// serialised.
type Document struct {
	mu        sync.Mutex
	r         *pdf.Reader
	closer    io.Closer
	trailer   raw.Dictionary
	version   string
	encrypted bool
	limits    security.Limits
}

var _ raw.Provider = (*Document)(nil)

func (d *Document) Trailer() raw.Dictionary { return d.trailer }
func (d *Document) Version() string         { return d.version }
func (d *Document) Encrypted() bool         { return d.encrypted }

// Limits returns the limits the document was parsed with.
func (d *Document) Limits() security.Limits { return d.limits }

// Resolve follows references produced by this document. Objects from other
// providers are returned unchanged.
func (d *Document) Resolve(obj raw.Object) (raw.Object, error) {
	ref, ok := obj.(refValue)
	if !ok {
		if r, isRef := obj.(raw.Reference); isRef {
			return nil, fmt.Errorf("%w: %s", raw.ErrUnresolved, r.Ref())
		}
		return obj, nil
	}
	return d.direct(ref.target, ref.r), nil
}

// NumPages reports the page count as seen by rsc.io/pdf.
func (d *Document) NumPages() (n int) {
	d.access(func() { n = d.r.NumPage() })
	return n
}

func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

var headerVersion = regexp.MustCompile(`%PDF-(\d+\.\d+)`)

// detectHeaderVersion reads the version from the %PDF-x.y header.
func detectHeaderVersion(r io.ReaderAt) string {
	buf := make([]byte, 1024)
	n, _ := r.ReadAt(buf, 0)
	m := headerVersion.FindSubmatch(buf[:n])
	if m == nil {
		return ""
	}
	return string(m[1])
}

// effectiveVersion is the later of the header version and the catalog's
// /Version entry.
func effectiveVersion(header string, src raw.Provider) string {
	root, err := raw.GetDict(src, src.Trailer(), "Root")
	if err != nil || root == nil {
		return header
	}
	obj, _ := raw.Get(src, root, "Version")
	catalog, ok := raw.NameOf(obj)
	if !ok {
		return header
	}
	hv, herr := strconv.ParseFloat(header, 64)
	cv, cerr := strconv.ParseFloat(catalog, 64)
	switch {
	case cerr != nil:
		return header
	case herr != nil || cv > hv:
		return catalog
	}
	return header
}

// declaresEncryption looks for an /Encrypt key near the end of the file,
// where the trailer lives.
func declaresEncryption(r io.ReaderAt, size int64) bool {
	const tail = 64 * 1024
	off := size - tail
	if off < 0 {
		off = 0
	}
	buf := make([]byte, size-off)
	n, _ := r.ReadAt(buf, off)
	return bytes.Contains(buf[:n], []byte("/Encrypt"))
}
