package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/server/dto"
)

var schemaJSON = sync.OnceValues(func() ([]byte, error) {
	return json.Marshal(dataset.Schema())
})

// GetMetadataSchema returns the JSON Schema of metadata.json.
func GetMetadataSchema(ctx context.Context, _ *dto.SchemaRequest) (*dto.SchemaResponse, error) {
	b, err := schemaJSON()
	if err != nil {
		return nil, dto.InternalWithError("Failed to encode schema", err)
	}
	return &dto.SchemaResponse{Schema: b}, nil
}
