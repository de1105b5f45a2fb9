// Package export archives executed query results to object storage,
// once as parquet for warehouse tooling and once as JSON for humans.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/querydeck/querydeck/internal/query"
	"github.com/querydeck/querydeck/internal/storage"
)

type Request struct {
	Question string
	SQL      string
	Result   query.Result
}

type Archive struct {
	Key           string             `json:"key"`
	ParquetObject storage.ObjectInfo `json:"parquet"`
	JSONObject    storage.ObjectInfo `json:"json"`
	Rows          int                `json:"rows"`
	ExportedAt    time.Time          `json:"exported_at"`
}

// Archiver writes archives under date-partitioned, uuid-suffixed keys
// so repeated exports of the same question never collide.
type Archiver struct {
	store storage.ObjectStore
	now   func() time.Time
	newID func() string
}

func NewArchiver(store storage.ObjectStore) *Archiver {
	return &Archiver{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

func (a *Archiver) Archive(ctx context.Context, req Request) (Archive, error) {
	if a.store == nil {
		return Archive{}, fmt.Errorf("object store is not configured")
	}
	if len(req.Result.Columns) == 0 {
		return Archive{}, fmt.Errorf("result has no columns")
	}

	exportedAt := a.now().UTC()
	key := fmt.Sprintf("exports/%s/%s", exportedAt.Format("2006/01/02"), a.newID())

	parquetData, err := EncodeResultToParquet(req.Result)
	if err != nil {
		return Archive{}, err
	}
	parquetInfo, err := a.store.Put(ctx, key+"/result.parquet", bytes.NewReader(parquetData), int64(len(parquetData)), storage.PutOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return Archive{}, fmt.Errorf("archive parquet: %w", err)
	}

	jsonData, err := json.Marshal(map[string]any{
		"question":    req.Question,
		"sql":         req.SQL,
		"columns":     req.Result.Columns,
		"rows":        req.Result.Rows,
		"exported_at": exportedAt,
	})
	if err != nil {
		return Archive{}, fmt.Errorf("encode archive json: %w", err)
	}
	jsonInfo, err := a.store.Put(ctx, key+"/result.json", bytes.NewReader(jsonData), int64(len(jsonData)), storage.PutOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return Archive{}, fmt.Errorf("archive json: %w", err)
	}

	return Archive{
		Key:           key,
		ParquetObject: parquetInfo,
		JSONObject:    jsonInfo,
		Rows:          len(req.Result.Rows),
		ExportedAt:    exportedAt,
	}, nil
}
