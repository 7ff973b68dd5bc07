package write

import (
	"github.com/benedoc-inc/pdfcmp/core/filter"
	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// AppendContent adds content as a new, compressed content stream painted
// after the existing contents of page n (1-based). The existing stream is
// wrapped in q/Q so its graphics state cannot leak into the overlay.
func AppendContent(doc *object.Document, n int, content []byte) error {
	page, _, ok := doc.Page(n)
	if !ok {
		return types.NewPDFErrorf(types.ErrCodeInvalidInput, "page %d does not exist", n)
	}

	overlay, err := flateStream(content)
	if err != nil {
		return err
	}
	overlayRef := doc.Add(overlay)

	existing := doc.Resolve(page.Get("Contents"))
	contents := object.NewArray()
	switch v := existing.(type) {
	case *object.Array:
		if v.Len() > 0 {
			open, err := flateStream([]byte("q\n"))
			if err != nil {
				return err
			}
			contents.Append(doc.Add(open))
			contents.Append(v.Items()...)
			closeRef, err := closeStateRef(doc)
			if err != nil {
				return err
			}
			contents.Append(closeRef)
		}
	case *object.Stream:
		open, err := flateStream([]byte("q\n"))
		if err != nil {
			return err
		}
		contents.Append(doc.Add(open), page.Get("Contents"))
		closeRef, err := closeStateRef(doc)
		if err != nil {
			return err
		}
		contents.Append(closeRef)
	}
	contents.Append(overlayRef)
	page.Set("Contents", contents)
	return nil
}

func closeStateRef(doc *object.Document) (object.Ref, error) {
	stm, err := flateStream([]byte("\nQ\n"))
	if err != nil {
		return object.Ref{}, err
	}
	return doc.Add(stm), nil
}

func flateStream(content []byte) (*object.Stream, error) {
	data, err := filter.EncodeFlate(content)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeWriteError, "cannot compress content", err)
	}
	return object.NewStream(object.NewDict().Set("Filter", object.Name(filter.FlateDecode)), data), nil
}
