// Package export converts in-memory tables to Parquet for downstream
// analytics tooling.
package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/statkit/dta/pkg/logging"
	"github.com/statkit/dta/pkg/table"
)

// rowBatchSize is the number of rows handed to the Parquet writer at a
// time.
const rowBatchSize = 1024

// Parquet writes the table to dst as a Parquet file. Every column maps
// to an optional leaf so null cells survive the conversion.
func Parquet(dst io.Writer, tbl *table.Table) error {
	schema, err := buildSchema(tbl)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[map[string]any](dst, schema)

	batch := make([]map[string]any, 0, rowBatchSize)
	for i := 0; i < tbl.NumRows(); i++ {
		batch = append(batch, buildRow(tbl, i))
		if len(batch) == rowBatchSize {
			if _, err := w.Write(batch); err != nil {
				return fmt.Errorf("write parquet rows: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := w.Write(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}

	log := logging.WithPhase("export")
	log.Debug().
		Int("rows", tbl.NumRows()).
		Int("cols", tbl.NumCols()).
		Msg("wrote parquet")
	return nil
}

// buildSchema maps column kinds to optional Parquet leaf nodes.
func buildSchema(tbl *table.Table) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, c := range tbl.Columns() {
		node, err := leafFor(c.Kind())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name(), err)
		}
		group[c.Name()] = parquet.Optional(node)
	}
	return parquet.NewSchema("dta", group), nil
}

func leafFor(k table.Kind) (parquet.Node, error) {
	switch k {
	case table.Int8, table.Int16, table.Int32:
		return parquet.Int(32), nil
	case table.Int64:
		return parquet.Int(64), nil
	case table.Uint8, table.Uint16:
		return parquet.Uint(32), nil
	case table.Uint32:
		return parquet.Uint(64), nil
	case table.Float32:
		return parquet.Leaf(parquet.FloatType), nil
	case table.Float64:
		return parquet.Leaf(parquet.DoubleType), nil
	case table.Bool:
		return parquet.Leaf(parquet.BooleanType), nil
	case table.String:
		return parquet.String(), nil
	case table.Time:
		return parquet.Timestamp(parquet.Millisecond), nil
	}
	return nil, fmt.Errorf("unsupported column kind %s", k)
}

// buildRow converts row i into a map keyed by column name. Null cells
// are left out of the map, which the optional schema records as nulls.
func buildRow(tbl *table.Table, i int) map[string]any {
	row := make(map[string]any, tbl.NumCols())
	for _, c := range tbl.Columns() {
		if c.IsNull(i) {
			continue
		}
		switch c.Kind() {
		case table.Int8, table.Int16, table.Int32:
			row[c.Name()] = int32(c.Integer(i))
		case table.Int64:
			row[c.Name()] = c.Integer(i)
		case table.Uint8, table.Uint16:
			row[c.Name()] = uint32(c.Integer(i))
		case table.Uint32:
			row[c.Name()] = uint64(c.Integer(i))
		case table.Float32:
			row[c.Name()] = c.Float32(i)
		case table.Float64:
			row[c.Name()] = c.Float64(i)
		case table.Bool:
			row[c.Name()] = c.Integer(i) != 0
		case table.String:
			row[c.Name()] = c.StringAt(i)
		case table.Time:
			row[c.Name()] = c.TimeAt(i).UnixMilli()
		}
	}
	return row
}
