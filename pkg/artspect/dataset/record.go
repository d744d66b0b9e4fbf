// Package dataset reads contract record files and appends enrichment
// results to them. Files are header-bearing CSV; the address column is
// the unique key for resumption.
package dataset

import "strings"

// Record is one input row. Values are kept as read so they pass through
// to the output unchanged.
type Record struct {
	BlockNumber string
	Address     string
	IsERC20     string
	IsERC721    string
	Code        string
}

// Annotation is the parsed classification for a contract.
type Annotation struct {
	Score  int
	Reason string
}

// SkipReason tags rows that produced no real enrichment.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipTooShort
	SkipDuplicate
	SkipFailed
)

// Result is one output row. Exactly one Result is written per record
// that is processed, including skipped ones.
type Result struct {
	Record      Record
	Code        string
	Annotation  *Annotation
	DuplicateOf string
	Skip        SkipReason
	Err         string // cause, when Skip == SkipFailed
}

var codeEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\n`)

// EscapeCode replaces embedded line breaks with the literal two-character
// sequence \n so every output row stays single-line.
func EscapeCode(s string) string {
	return codeEscaper.Replace(s)
}
