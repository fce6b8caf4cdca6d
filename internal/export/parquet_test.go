package export

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/statkit/dta/pkg/table"
)

func TestParquetRoundTrip(t *testing.T) {
	tbl, err := table.New(
		table.NewFloat64("wage", []float64{3.5, 0}, []bool{false, true}),
		table.NewInt32("id", []int32{10, 20}, nil),
		table.NewString("name", []string{"ada", "bo"}, nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Parquet(&buf, tbl); err != nil {
		t.Fatal(err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if file.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", file.NumRows())
	}

	rows := readAllRows(t, file)
	schema := file.Schema()
	cols := map[string]int{}
	for i, f := range schema.Fields() {
		cols[f.Name()] = i
	}

	// Row 0 has all three values; row 1 has a null wage.
	var sawNullWage bool
	for _, row := range rows {
		for _, v := range row {
			if v.Column() == cols["wage"] && v.IsNull() {
				sawNullWage = true
			}
			if v.Column() == cols["name"] && !v.IsNull() {
				s := v.String()
				if s != "ada" && s != "bo" {
					t.Errorf("unexpected name %q", s)
				}
			}
		}
	}
	if !sawNullWage {
		t.Error("null wage cell did not survive the conversion")
	}
}

func TestParquetTimeColumn(t *testing.T) {
	when := time.Date(1988, 7, 1, 0, 0, 0, 0, time.UTC)
	tbl, err := table.New(table.NewTime("d", []time.Time{when}, nil))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Parquet(&buf, tbl); err != nil {
		t.Fatal(err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	rows := readAllRows(t, file)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0][0].Int64()
	if got != when.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", got, when.UnixMilli())
	}
}

func readAllRows(t *testing.T, file *parquet.File) []parquet.Row {
	t.Helper()
	var out []parquet.Row
	for _, rg := range file.RowGroups() {
		rows := rg.Rows()
		buf := make([]parquet.Row, 8)
		for {
			n, err := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				out = append(out, buf[i].Clone())
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					t.Fatal(err)
				}
				break
			}
		}
		rows.Close()
	}
	return out
}
