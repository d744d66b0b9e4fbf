package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/cognicore/artspect/pkg/artspect/internalerr"
)

// Column names shared by input and output files.
const (
	colBlockNumber = "block_number"
	colAddress     = "address"
	colIsERC20     = "is_erc20"
	colIsERC721    = "is_erc721"
	colCode        = "code"
)

// ReadRecords loads the whole input file into memory before processing
// begins. requireCode demands the code column, which the classification
// stage consumes; the fetch stage produces it instead and leaves it
// optional on input.
func ReadRecords(path string, requireCode bool) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	idx := columnIndex(header)
	required := []string{colBlockNumber, colAddress, colIsERC20, colIsERC721}
	if requireCode {
		required = append(required, colCode)
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: %s in %s", internalerr.ErrMissingColumn, name, path)
		}
	}
	codeIdx, hasCode := idx[colCode]

	var records []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rec := Record{
			BlockNumber: row[idx[colBlockNumber]],
			Address:     row[idx[colAddress]],
			IsERC20:     row[idx[colIsERC20]],
			IsERC721:    row[idx[colIsERC721]],
		}
		if hasCode && codeIdx < len(row) {
			rec.Code = row[codeIdx]
		}
		records = append(records, rec)
	}
	return records, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}
