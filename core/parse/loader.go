// Package parse loads PDF files into the object model of core/object.
//
// Objects are located through the cross-reference chain (tables, streams and
// hybrid files, following /Prev across incremental updates) and parsed
// lazily on first access. When the cross-reference data is unusable the
// loader falls back to scanning the file for object headers.
package parse

import (
	"io"
	"log/slog"
	"os"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// Option configures Load.
type Option func(*loadConfig)

type loadConfig struct {
	logger   *slog.Logger
	recovery bool
}

// WithLogger sets the logger for loader diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecovery enables or disables the object scan used when the
// cross-reference data is broken. Enabled by default.
func WithRecovery(enabled bool) Option {
	return func(c *loadConfig) { c.recovery = enabled }
}

// Open reads and loads the PDF at path.
func Open(path string, opts ...Option) (*object.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapErrorf(types.ErrCodeIOError, err, "cannot read %s", path)
	}
	return Load(data, opts...)
}

// Load parses data into a document. Encrypted documents are rejected with
// types.ErrEncrypted.
func Load(data []byte, opts ...Option) (*object.Document, error) {
	cfg := loadConfig{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recovery: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	version, headerAt, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	// Offsets are relative to the header when junk precedes it.
	data = data[headerAt:]

	warnings := types.NewWarningCollector()
	src := &source{
		data:     data,
		streams:  make(map[int]*objectStream),
		loading:  make(map[int]bool),
		warnings: warnings,
		logger:   cfg.logger,
	}

	trailer, err := src.readXRef()
	if err != nil {
		if !cfg.recovery {
			return nil, err
		}
		cfg.logger.Debug("xref unusable, scanning for objects", "error", err)
		if trailer, err = src.recover(); err != nil {
			return nil, err
		}
		warnings.Addf(types.WarningLevelWarning, types.WarnXRefRecovered,
			"cross-reference data unusable, %d objects located by scanning", len(src.table))
	}

	if trailer.Has("Encrypt") {
		return nil, types.NewPDFError(types.ErrCodeEncrypted, "encrypted documents are not supported")
	}

	doc := object.NewDocumentFromSource(version, trailer, src, warnings)
	if _, _, ok := doc.Catalog(); !ok {
		return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "trailer /Root does not resolve to a catalog")
	}
	cfg.logger.Debug("document loaded", "version", version, "objects", len(src.table))
	return doc, nil
}

// source implements object.Source over the file bytes.
type source struct {
	data     []byte
	table    xrefTable
	streams  map[int]*objectStream
	loading  map[int]bool
	scanned  xrefTable
	warnings *types.WarningCollector
	logger   *slog.Logger
}

func (s *source) readXRef() (*object.Dict, error) {
	start, err := findStartXRef(s.data)
	if err != nil {
		return nil, err
	}
	table, trailer, err := readXRefChain(s.data, start)
	if err != nil {
		return nil, err
	}
	if !trailer.Has("Root") {
		return nil, types.NewPDFError(types.ErrCodeXRefError, "trailer has no /Root")
	}
	s.table = table
	return trailer, nil
}

func (s *source) recover() (*object.Dict, error) {
	s.scanned = scanObjects(s.data)
	if len(s.scanned) == 0 {
		return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "no objects found")
	}
	s.table = make(xrefTable, len(s.scanned))
	s.table.merge(s.scanned)

	// Objects packed in object streams have no header of their own.
	for num := range s.scanned {
		obj, _, _ := s.Load(num)
		stm, ok := obj.(*object.Stream)
		if !ok || !stm.Dict.IsType("ObjStm") {
			continue
		}
		ostm, err := newObjectStream(stm)
		if err != nil {
			continue
		}
		s.streams[num] = ostm
		for i, n := range ostm.nums {
			if _, exists := s.table[n]; !exists {
				s.table[n] = xrefEntry{kind: entryCompressed, stream: num, index: i}
			}
		}
	}

	return recoverTrailer(s.data, s.table, func(num int) object.Object {
		obj, _, _ := s.Load(num)
		return obj
	})
}

// Numbers implements object.Source.
func (s *source) Numbers() []int {
	nums := make([]int, 0, len(s.table))
	for num, e := range s.table {
		if e.kind != entryFree && num > 0 {
			nums = append(nums, num)
		}
	}
	return nums
}

// Load implements object.Source. An object that exists but cannot be parsed
// reads as null and leaves a warning.
func (s *source) Load(num int) (object.Object, int, bool) {
	e, ok := s.table[num]
	if !ok || e.kind == entryFree {
		return nil, 0, false
	}
	if s.loading[num] {
		return object.Null{}, e.gen, true
	}
	s.loading[num] = true
	defer delete(s.loading, num)

	obj, err := s.parseEntry(num, e)
	if err != nil && e.kind == entryOffset {
		// A stale offset is common in hand-edited files; try the scan.
		if alt, found := s.scan()[num]; found && alt.offset != e.offset {
			obj, err = s.parseEntry(num, alt)
		}
	}
	if err != nil {
		s.logger.Debug("object unparsable", "object", num, "error", err)
		s.warnings.Addf(types.WarningLevelWarning, types.WarnObjectUnparsable,
			"object %d could not be parsed: %v", num, err).WithContext("object", num)
		return object.Null{}, e.gen, true
	}
	return obj, e.gen, true
}

func (s *source) scan() xrefTable {
	if s.scanned == nil {
		s.scanned = scanObjects(s.data)
	}
	return s.scanned
}

func (s *source) parseEntry(num int, e xrefEntry) (object.Object, error) {
	switch e.kind {
	case entryOffset:
		if e.offset < 0 || e.offset >= int64(len(s.data)) {
			return nil, types.NewPDFErrorf(types.ErrCodeXRefError, "offset %d out of range", e.offset)
		}
		p := newParser(s.data, int(e.offset))
		p.lengthOf = s.length
		ref, obj, err := p.indirect()
		if err != nil {
			return nil, err
		}
		if ref.Num != num {
			return nil, types.NewPDFErrorf(types.ErrCodeXRefError, "offset %d holds object %d, not %d", e.offset, ref.Num, num)
		}
		return obj, nil
	case entryCompressed:
		ostm, err := s.objectStream(e.stream)
		if err != nil {
			return nil, err
		}
		return ostm.object(num, e.index)
	}
	return nil, types.NewPDFErrorf(types.ErrCodeObjectNotFound, "object %d is free", num)
}

func (s *source) objectStream(num int) (*objectStream, error) {
	if ostm, ok := s.streams[num]; ok {
		return ostm, nil
	}
	e, ok := s.table[num]
	if !ok || e.kind != entryOffset {
		return nil, types.NewPDFErrorf(types.ErrCodeObjectNotFound, "object stream %d not found", num)
	}
	obj, err := s.parseEntry(num, e)
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(*object.Stream)
	if !ok {
		return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "object %d is not an object stream", num)
	}
	ostm, err := newObjectStream(stm)
	if err != nil {
		return nil, err
	}
	s.streams[num] = ostm
	return ostm, nil
}

// length resolves an indirect stream /Length.
func (s *source) length(ref object.Ref) (int, bool) {
	obj, _, ok := s.Load(ref.Num)
	if !ok {
		return 0, false
	}
	n, ok := object.Number(obj)
	return int(n), ok && n >= 0
}
