package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/querydeck/querydeck/internal/query"
)

// resultCell is one value in long format. Query results have no fixed
// schema, so the parquet file stores (row, column, value) triples with
// the value rendered as text; JSON keeps the typed form alongside.
type resultCell struct {
	RowIndex   int64  `parquet:"row_index"`
	ColumnName string `parquet:"column_name"`
	ValueText  string `parquet:"value_text"`
	IsNull     bool   `parquet:"is_null"`
}

// EncodeResultToParquet flattens a query result into long-format cells
// and writes them as a single parquet row group.
func EncodeResultToParquet(result query.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	cells := make([]resultCell, 0, len(result.Rows)*len(result.Columns))
	for i, row := range result.Rows {
		for _, column := range result.Columns {
			value, ok := row[column]
			cell := resultCell{RowIndex: int64(i), ColumnName: column}
			if !ok || value == nil {
				cell.IsNull = true
			} else {
				cell.ValueText = renderValue(value)
			}
			cells = append(cells, cell)
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[resultCell](buf)
	if len(cells) > 0 {
		if _, err := writer.Write(cells); err != nil {
			return nil, fmt.Errorf("write parquet cells: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func renderValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
