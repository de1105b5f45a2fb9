package export

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/querydeck/querydeck/internal/query"
	"github.com/querydeck/querydeck/internal/storage"
)

type capturingStore struct {
	objects map[string][]byte
	err     error
}

func (s *capturingStore) Put(_ context.Context, key string, body io.Reader, size int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if s.err != nil {
		return storage.ObjectInfo{}, s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func sampleResult() query.Result {
	return query.Result{
		Columns: []string{"region", "total"},
		Rows: []map[string]any{
			{"region": "west", "total": 10},
			{"region": "east", "total": nil},
		},
	}
}

func TestEncodeResultToParquet(t *testing.T) {
	data, err := EncodeResultToParquet(sampleResult())
	if err != nil {
		t.Fatalf("EncodeResultToParquet returned error: %v", err)
	}

	cells, err := parquet.Read[resultCell](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read parquet back: %v", err)
	}
	if len(cells) != 4 {
		t.Fatalf("got %d cells, want 4", len(cells))
	}
	if cells[0].RowIndex != 0 || cells[0].ColumnName != "region" || cells[0].ValueText != "west" {
		t.Fatalf("cells[0] = %+v", cells[0])
	}
	if !cells[3].IsNull {
		t.Fatalf("nil value should mark IsNull, got %+v", cells[3])
	}
}

func TestEncodeResultToParquetNoColumns(t *testing.T) {
	if _, err := EncodeResultToParquet(query.Result{}); err == nil {
		t.Fatal("expected error for empty result")
	}
}

func TestArchiverWritesBothObjects(t *testing.T) {
	store := &capturingStore{}
	archiver := NewArchiver(store)
	archiver.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	archiver.newID = func() string { return "fixed-id" }

	archive, err := archiver.Archive(context.Background(), Request{
		Question: "sales by region",
		SQL:      "SELECT region, total FROM sales LIMIT 1000",
		Result:   sampleResult(),
	})
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}

	if archive.Key != "exports/2026/09/01/fixed-id" {
		t.Fatalf("key = %q", archive.Key)
	}
	if archive.Rows != 2 {
		t.Fatalf("rows = %d", archive.Rows)
	}
	if _, ok := store.objects["exports/2026/09/01/fixed-id/result.parquet"]; !ok {
		t.Fatal("parquet object missing")
	}
	jsonData, ok := store.objects["exports/2026/09/01/fixed-id/result.json"]
	if !ok {
		t.Fatal("json object missing")
	}
	if !strings.Contains(string(jsonData), "SELECT region, total FROM sales LIMIT 1000") {
		t.Fatalf("json payload missing sql: %s", jsonData)
	}
}

func TestArchiverRequiresColumns(t *testing.T) {
	archiver := NewArchiver(&capturingStore{})
	if _, err := archiver.Archive(context.Background(), Request{Result: query.Result{}}); err == nil {
		t.Fatal("expected error for empty result")
	}
}
