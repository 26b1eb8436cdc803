package localfs

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// countPDFPages reports the page count of a staged PDF. The reader panics on
// some malformed inputs, so panics are turned into errors.
func countPDFPages(path string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = 0
			err = fmt.Errorf("inspect pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	return reader.NumPage(), nil
}
