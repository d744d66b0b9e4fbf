package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/artspect/pkg/artspect/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadRecords(t *testing.T) {
	path := writeFile(t, "input.csv",
		"block_number,address,is_erc20,is_erc721,code\n"+
			"100,0xA,true,false,6080604052\n"+
			"101,0xB,false,true,\n")

	records, err := ReadRecords(path, true)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	want := Record{BlockNumber: "100", Address: "0xA", IsERC20: "true", IsERC721: "false", Code: "6080604052"}
	if records[0] != want {
		t.Errorf("unexpected record: %+v", records[0])
	}
	if records[1].Code != "" {
		t.Errorf("expected empty code, got %q", records[1].Code)
	}
}

func TestReadRecordsWithoutCodeColumn(t *testing.T) {
	path := writeFile(t, "input.csv",
		"block_number,address,is_erc20,is_erc721\n100,0xA,true,false\n")

	records, err := ReadRecords(path, false)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 1 || records[0].Code != "" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestReadRecordsRequireCode(t *testing.T) {
	// A fetch-shaped input must not be accepted by a stage that
	// consumes code: every row would degrade to a placeholder.
	path := writeFile(t, "input.csv",
		"block_number,address,is_erc20,is_erc721\n100,0xA,true,false\n")

	_, err := ReadRecords(path, true)
	if !errors.Is(err, internalerr.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), "code") {
		t.Errorf("error should name the column: %v", err)
	}
}

func TestReadRecordsMissingColumn(t *testing.T) {
	path := writeFile(t, "input.csv", "block_number,is_erc20,is_erc721\n100,true,false\n")

	_, err := ReadRecords(path, false)
	if !errors.Is(err, internalerr.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), "address") {
		t.Errorf("error should name the column: %v", err)
	}
}

func TestLoadProcessedMissingFile(t *testing.T) {
	processed, err := LoadProcessed(filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil {
		t.Fatalf("LoadProcessed: %v", err)
	}
	if len(processed) != 0 {
		t.Errorf("expected empty set, got %d entries", len(processed))
	}
}

func TestLoadProcessedHeaderOnly(t *testing.T) {
	path := writeFile(t, "out.csv", "block_number,address,is_erc20,is_erc721,code\n")

	processed, err := LoadProcessed(path)
	if err != nil {
		t.Fatalf("LoadProcessed: %v", err)
	}
	if len(processed) != 0 {
		t.Errorf("expected empty set, got %d entries", len(processed))
	}
}

func TestLoadProcessed(t *testing.T) {
	path := writeFile(t, "out.csv",
		"block_number,address,is_erc20,is_erc721,code\n"+
			"100,0xA,true,false,src\n"+
			"101,0xB,false,false,\n")

	processed, err := LoadProcessed(path)
	if err != nil {
		t.Fatalf("LoadProcessed: %v", err)
	}
	for _, addr := range []string{"0xA", "0xB"} {
		if _, ok := processed[addr]; !ok {
			t.Errorf("expected %s in processed set", addr)
		}
	}
	if len(processed) != 2 {
		t.Errorf("expected 2 entries, got %d", len(processed))
	}
}

func TestSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	sink, err := OpenFetchSink(path)
	if err != nil {
		t.Fatalf("OpenFetchSink: %v", err)
	}
	if err := sink.Append(Result{
		Record: Record{BlockNumber: "100", Address: "0xA", IsERC20: "true", IsERC721: "false"},
		Code:   "contract A {}",
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	sink.Close()

	// Reopen: the header must not repeat.
	sink, err = OpenFetchSink(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := sink.Append(Result{
		Record: Record{BlockNumber: "101", Address: "0xB", IsERC20: "false", IsERC721: "false"},
	}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	sink.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), lines)
	}
	if lines[0] != "block_number,address,is_erc20,is_erc721,code" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if strings.Count(string(data), "block_number") != 1 {
		t.Error("header written more than once")
	}
}

func TestClassifySinkRows(t *testing.T) {
	rec := Record{BlockNumber: "100", Address: "0xA", IsERC20: "true", IsERC721: "false", Code: "608060"}

	tests := []struct {
		name string
		res  Result
		want []string
	}{
		{
			name: "enriched",
			res: Result{Record: rec, Code: "608060",
				Annotation: &Annotation{Score: 2, Reason: "playful naming scheme"}},
			want: []string{"100", "0xA", "true", "false", "608060", "2", "playful naming scheme", ""},
		},
		{
			name: "too short",
			res:  Result{Record: rec, Skip: SkipTooShort},
			want: []string{"100", "0xA", "true", "false", "", "", "", ""},
		},
		{
			name: "duplicate",
			res:  Result{Record: rec, Skip: SkipDuplicate, DuplicateOf: "0xB"},
			want: []string{"100", "0xA", "true", "false", "", "", "", "0xB"},
		},
		{
			name: "failed",
			res:  Result{Record: rec, Skip: SkipFailed, Err: "gave up after 3 attempts"},
			want: []string{"100", "0xA", "true", "false", "", "", "error: gave up after 3 attempts", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyRow(tt.res)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d fields, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEscapeCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unix newline", input: "line1\nline2", want: `line1\nline2`},
		{name: "windows newline", input: "line1\r\nline2", want: `line1\nline2`},
		{name: "bare carriage return", input: "line1\rline2", want: `line1\nline2`},
		{name: "no newline", input: "single line", want: "single line"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeCode(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
