package pdfobj

import (
	"fmt"
	"io"
	"os"

	"github.com/tsawler/tabula/reader"
)

// Document is a reader over an in-memory PDF. The reader needs a file, so
// the bytes are spooled to a temporary one that Close removes.
type Document struct {
	*reader.Reader
	path string
}

// Open parses data and returns a reader over it.
func Open(data []byte) (*Document, error) {
	f, err := os.CreateTemp("", "pdfcompare-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	fail := func(err error) (*Document, error) {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		return fail(fmt.Errorf("failed to write temp file: %w", err))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fail(fmt.Errorf("failed to rewind temp file: %w", err))
	}

	r, err := reader.NewReader(f)
	if err != nil {
		return fail(err)
	}
	return &Document{Reader: r, path: path}, nil
}

// Close closes the reader and removes the temporary file.
func (d *Document) Close() error {
	err := d.Reader.Close()
	if rmErr := os.Remove(d.path); rmErr != nil && err == nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	return err
}

// PageNodes returns the leaves of the document's page tree.
func (d *Document) PageNodes() ([]PageNode, error) {
	catalog, err := d.GetCatalog()
	if err != nil {
		return nil, err
	}
	return Pages(d.Reader, catalog)
}
