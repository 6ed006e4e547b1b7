package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"playstore-analytics/models"
)

const parquetBatchRows = 4096

// ReadParquetTable decodes a Parquet dataset into a Table.
func ReadParquetTable(ctx context.Context, r parquet.ReaderAtSeeker) (*models.Table, error) {
	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, r, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("parquet: read table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}

	// Flatten every column into a row-addressable slice.
	columns := make([][]any, len(names))
	for i := range columns {
		columns[i] = make([]any, 0, tbl.NumRows())
	}
	tr := array.NewTableReader(tbl, parquetBatchRows)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		n := int(rec.NumRows())
		for c := range names {
			arr := rec.Column(c)
			for i := 0; i < n; i++ {
				columns[c] = append(columns[c], arrowValue(arr, i))
			}
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("parquet: iterate records: %w", err)
	}

	return assemble(frame{
		names: names,
		rows:  int(tbl.NumRows()),
		value: func(col, row int) any { return columns[col][row] },
	})
}

func arrowValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int16:
		return int32(a.Value(i))
	case *array.Int8:
		return int32(a.Value(i))
	case *array.Dictionary:
		return arrowValue(a.Dictionary(), a.GetValueIndex(i))
	}
	return arr.ValueStr(i)
}

// parquetEncoder writes records as a snappy-compressed Parquet file.
type parquetEncoder struct{}

func (parquetEncoder) Encode(w io.Writer, apps []*models.App, schema models.Schema) error {
	mem := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(schema))
	for i, c := range schema {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Kind)}
	}
	as := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, as)
	defer b.Release()
	for _, a := range apps {
		for i, c := range schema {
			switch fb := b.Field(i).(type) {
			case *array.StringBuilder:
				s, _ := a.Value(c.Name).(string)
				fb.Append(s)
			case *array.Float64Builder:
				f, _ := a.Value(c.Name).(float64)
				fb.Append(f)
			case *array.Int64Builder:
				n, _ := a.Value(c.Name).(int64)
				fb.Append(n)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(as, []arrow.Record{rec})
	defer tbl.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(tbl, w, parquetBatchRows, props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("parquet: write table: %w", err)
	}
	return nil
}

func arrowType(k models.ColumnKind) arrow.DataType {
	switch k {
	case models.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case models.KindInt:
		return arrow.PrimitiveTypes.Int64
	}
	return arrow.BinaryTypes.String
}
