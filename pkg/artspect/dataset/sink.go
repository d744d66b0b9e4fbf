package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

var (
	fetchHeader    = []string{colBlockNumber, colAddress, colIsERC20, colIsERC721, colCode}
	classifyHeader = []string{colBlockNumber, colAddress, colIsERC20, colIsERC721, colCode,
		"artistic_score", "artistic_reason", "duplicate_of_address"}
)

// Sink appends result rows to an output file. The header is written
// exactly once, when the file is new or empty, and every append is
// flushed and synced before returning so a crash loses at most the
// in-flight record.
type Sink struct {
	f   *os.File
	w   *csv.Writer
	row func(Result) []string
}

// OpenFetchSink opens an output file with the fetch-stage schema.
func OpenFetchSink(path string) (*Sink, error) {
	return openSink(path, fetchHeader, fetchRow)
}

// OpenClassifySink opens an output file with the classification-stage schema.
func OpenClassifySink(path string) (*Sink, error) {
	return openSink(path, classifyHeader, classifyRow)
}

func openSink(path string, header []string, row func(Result) []string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &Sink{f: f, w: csv.NewWriter(f), row: row}
	if st.Size() == 0 {
		if err := s.write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header to %s: %w", path, err)
		}
	}
	return s, nil
}

// Append durably persists one result row.
func (s *Sink) Append(res Result) error {
	return s.write(s.row(res))
}

func (s *Sink) Close() error {
	return s.f.Close()
}

func (s *Sink) write(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	return s.f.Sync()
}

func fetchRow(res Result) []string {
	rec := res.Record
	return []string{rec.BlockNumber, rec.Address, rec.IsERC20, rec.IsERC721, EscapeCode(res.Code)}
}

func classifyRow(res Result) []string {
	rec := res.Record
	score, reason := "", ""
	if res.Annotation != nil {
		score = strconv.Itoa(res.Annotation.Score)
		reason = res.Annotation.Reason
	}
	if res.Skip == SkipFailed {
		reason = "error: " + res.Err
	}
	return []string{rec.BlockNumber, rec.Address, rec.IsERC20, rec.IsERC721,
		EscapeCode(res.Code), score, reason, res.DuplicateOf}
}
