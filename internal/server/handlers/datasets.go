package handlers

import (
	"context"
	"encoding/json"

	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/server/dto"
)

// DatasetHandler serves dataset listings and summaries.
type DatasetHandler struct {
	Registry *dataset.Registry
}

// ListDatasets returns the dataset names, alphabetic names first.
func (h *DatasetHandler) ListDatasets(ctx context.Context, _ *dto.ListDatasetsRequest) (*dto.DatasetsResponse, error) {
	return &dto.DatasetsResponse{Datasets: h.Registry.Names()}, nil
}

// GetDataset returns the summary of a dataset without its records.
func (h *DatasetHandler) GetDataset(ctx context.Context, req *dto.GetDatasetRequest) (*dto.DatasetInfoResponse, error) {
	ds, err := h.Registry.Get(req.Name)
	if err != nil {
		return nil, toAPIError(err, req.Name, "")
	}
	info := ds.Info()
	return &dto.DatasetInfoResponse{
		Name: ds.Name,
		Metadata: dto.DatasetMetadata{
			Source:          info.Source,
			Content:         info.Content,
			Labels:          info.Labels,
			InvalidRecords:  info.InvalidRecords,
			InvalidFonts:    info.InvalidFonts,
			CompletedLabels: info.CompletedLabels,
		},
	}, nil
}

// GetLabel returns the records of a label in stored order.
func (h *DatasetHandler) GetLabel(ctx context.Context, req *dto.GetLabelRequest) (*dto.LabelResponse, error) {
	ds, err := h.Registry.Get(req.Name)
	if err != nil {
		return nil, toAPIError(err, req.Name, "")
	}
	recs := ds.FindRecordsByLabel(req.Label)
	out := make([]json.RawMessage, 0, len(recs))
	for i := range recs {
		b, err := recordJSON(&recs[i])
		if err != nil {
			return nil, toAPIError(err, req.Name, recs[i].Hash)
		}
		out = append(out, b)
	}
	return &dto.LabelResponse{Dataset: req.Name, Label: req.Label, Records: out}, nil
}

func recordJSON(rec *dataset.Record) (json.RawMessage, error) {
	return json.Marshal(rec)
}
