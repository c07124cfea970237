package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/server/dto"
)

// FlagHandler changes the review flags of a dataset and persists them.
type FlagHandler struct {
	Registry *dataset.Registry
}

// MarkRecordInvalid flags a record as invalid and returns it.
func (h *FlagHandler) MarkRecordInvalid(ctx context.Context, req *dto.RecordFlagRequest) (*dto.RecordResponse, error) {
	ds, err := h.Registry.Get(req.Name)
	if err != nil {
		return nil, toAPIError(err, req.Name, req.Hash)
	}
	rec, err := ds.FindRecordByHash(req.Hash)
	if err != nil {
		return nil, toAPIError(err, req.Name, req.Hash)
	}
	slog.InfoContext(ctx, "Marking record invalid", "dataset", ds.Name, "hash", req.Hash)
	if err := ds.MarkRecordInvalid(ctx, req.Hash); err != nil {
		return nil, persistError(err, ds.Name)
	}
	b, err := recordJSON(&rec)
	if err != nil {
		return nil, toAPIError(err, req.Name, req.Hash)
	}
	return &dto.RecordResponse{Record: b}, nil
}

// MarkRecordValid removes a record from the invalid set. Unknown hashes are
// accepted so stale entries can be cleaned up.
func (h *FlagHandler) MarkRecordValid(ctx context.Context, req *dto.RecordFlagRequest) (*dto.MessageResponse, error) {
	return h.toggle(ctx, req.Name, func(ds *dataset.Dataset) error {
		return ds.MarkRecordValid(ctx, req.Hash)
	}, fmt.Sprintf("Marked %q as valid record.", req.Hash))
}

// MarkFontInvalid adds a font to the invalid font set. Records are not changed.
func (h *FlagHandler) MarkFontInvalid(ctx context.Context, req *dto.FontFlagRequest) (*dto.MessageResponse, error) {
	return h.toggle(ctx, req.Name, func(ds *dataset.Dataset) error {
		return ds.MarkFontInvalid(ctx, req.Font)
	}, fmt.Sprintf("Marked %s as invalid.", req.Font))
}

// MarkFontValid clears the invalid flag of a font.
func (h *FlagHandler) MarkFontValid(ctx context.Context, req *dto.FontFlagRequest) (*dto.MessageResponse, error) {
	return h.toggle(ctx, req.Name, func(ds *dataset.Dataset) error {
		return ds.MarkFontValid(ctx, req.Font)
	}, fmt.Sprintf("Marked %s as valid.", req.Font))
}

// MarkLabelCompleted records that every record of a label was reviewed.
func (h *FlagHandler) MarkLabelCompleted(ctx context.Context, req *dto.LabelFlagRequest) (*dto.MessageResponse, error) {
	return h.toggle(ctx, req.Name, func(ds *dataset.Dataset) error {
		return ds.MarkLabelCompleted(ctx, req.Label)
	}, fmt.Sprintf("Marked label %q as done.", req.Label))
}

// MarkLabelIncomplete reopens the review of a label.
func (h *FlagHandler) MarkLabelIncomplete(ctx context.Context, req *dto.LabelFlagRequest) (*dto.MessageResponse, error) {
	return h.toggle(ctx, req.Name, func(ds *dataset.Dataset) error {
		return ds.MarkLabelIncomplete(ctx, req.Label)
	}, fmt.Sprintf("Marked label %q as not fully inspected.", req.Label))
}

func (h *FlagHandler) toggle(ctx context.Context, name string, fn func(*dataset.Dataset) error, msg string) (*dto.MessageResponse, error) {
	ds, err := h.Registry.Get(name)
	if err != nil {
		return nil, toAPIError(err, name, "")
	}
	if err := fn(ds); err != nil {
		return nil, persistError(err, ds.Name)
	}
	slog.InfoContext(ctx, "Flag changed", "dataset", ds.Name, "msg", msg)
	return &dto.MessageResponse{Message: msg}, nil
}

func persistError(err error, name string) error {
	return dto.StorageError("Failed to save metadata", err).WithDetail("dataset", name)
}
