package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cognicore/artspect/pkg/artspect/internalerr"
)

// LoadProcessed scans an existing output file and returns the set of
// addresses already recorded, including skip placeholders. A missing or
// header-only file yields an empty set: there is nothing to resume.
func LoadProcessed(path string) (map[string]struct{}, error) {
	processed := make(map[string]struct{})

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return processed, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return processed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	addrIdx, ok := columnIndex(header)[colAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", internalerr.ErrMissingColumn, colAddress, path)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return processed, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if addrIdx < len(row) {
			processed[row[addrIdx]] = struct{}{}
		}
	}
}
