package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/dsinspect/internal/codec"
	"github.com/maruel/dsinspect/internal/container"
	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/inspect"
	"github.com/maruel/dsinspect/internal/server/dto"
)

// newRegistry builds a dataset "hanzi" with records h0..h3, labels a, b.
func newRegistry(t *testing.T) *dataset.Registry {
	t.Helper()
	root := t.TempDir()
	b, err := dataset.NewBuilder(filepath.Join(root, "hanzi"), codec.CBOR{}, inspect.DefaultField, "fonts/", "hanzi")
	if err != nil {
		t.Fatal(err)
	}
	for i := range 4 {
		h := fmt.Sprintf("h%d", i)
		label := "a"
		if i%2 == 1 {
			label = "b"
		}
		if _, err := b.Add(h, label, "f1", []byte("img-"+h), nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	reg, err := dataset.Discover(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func wantAPIError(t *testing.T, err error, status int, code dto.ErrorCode) *dto.APIError {
	t.Helper()
	var apiErr *dto.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *dto.APIError", err)
	}
	if apiErr.StatusCode() != status || apiErr.Code() != code {
		t.Fatalf("err = %d %s, want %d %s", apiErr.StatusCode(), apiErr.Code(), status, code)
	}
	return apiErr
}

func TestDatasetHandler(t *testing.T) {
	ctx := context.Background()
	h := &DatasetHandler{Registry: newRegistry(t)}

	list, err := h.ListDatasets(ctx, &dto.ListDatasetsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Datasets) != 1 || list.Datasets[0] != "hanzi" {
		t.Errorf("Datasets = %v", list.Datasets)
	}

	info, err := h.GetDataset(ctx, &dto.GetDatasetRequest{Name: "hanzi"})
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "hanzi" || info.Metadata.Source != "fonts/" || info.Metadata.Content != "hanzi" {
		t.Errorf("GetDataset() = %+v", info)
	}
	if strings.Join(info.Metadata.Labels, ",") != "a,b" {
		t.Errorf("Labels = %v", info.Metadata.Labels)
	}
	if info.Metadata.InvalidRecords == nil {
		t.Error("InvalidRecords must be an empty list, not null")
	}

	_, err = h.GetDataset(ctx, &dto.GetDatasetRequest{Name: "nope"})
	apiErr := wantAPIError(t, err, http.StatusNotFound, dto.ErrorCodeDatasetNotFound)
	if !strings.Contains(apiErr.Error(), "nope") {
		t.Errorf("message %q does not name the dataset", apiErr.Error())
	}

	label, err := h.GetLabel(ctx, &dto.GetLabelRequest{Name: "hanzi", Label: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(label.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(label.Records))
	}
	var rec map[string]any
	if err := json.Unmarshal(label.Records[0], &rec); err != nil {
		t.Fatal(err)
	}
	if rec["hash"] != "h1" || rec["label"] != "b" {
		t.Errorf("record = %v", rec)
	}

	empty, err := h.GetLabel(ctx, &dto.GetLabelRequest{Name: "hanzi", Label: "zzz"})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Records == nil || len(empty.Records) != 0 {
		t.Errorf("Records = %v, want empty list", empty.Records)
	}
}

func TestImageHandler(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	h := &ImageHandler{Registry: reg, Resolver: inspect.NewResolver("")}

	img, err := h.GetImage(ctx, &dto.GetImageRequest{Name: "hanzi", Hash: "h2"})
	if err != nil {
		t.Fatal(err)
	}
	if img.Image != base64.StdEncoding.EncodeToString([]byte("img-h2")) {
		t.Errorf("Image = %q", img.Image)
	}

	_, err = h.GetImage(ctx, &dto.GetImageRequest{Name: "hanzi", Hash: "nope"})
	apiErr := wantAPIError(t, err, http.StatusNotFound, dto.ErrorCodeRecordNotFound)
	if !strings.Contains(apiErr.Error(), `"nope"`) {
		t.Errorf("message %q does not name the hash", apiErr.Error())
	}

	_, err = h.GetImage(ctx, &dto.GetImageRequest{Name: "x", Hash: "h2"})
	wantAPIError(t, err, http.StatusNotFound, dto.ErrorCodeDatasetNotFound)

	imgs, err := h.GetImages(ctx, &dto.GetImagesRequest{Name: "hanzi", Hashes: []string{"h3", "nope", "h3"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs.Images) != 3 {
		t.Fatalf("Images = %d, want 3", len(imgs.Images))
	}
	want := base64.StdEncoding.EncodeToString([]byte("img-h3"))
	if imgs.Images[0].Data == nil || *imgs.Images[0].Data != want {
		t.Errorf("Images[0] = %+v", imgs.Images[0])
	}
	if imgs.Images[1].Hash != "nope" || imgs.Images[1].Data != nil {
		t.Errorf("Images[1] = %+v", imgs.Images[1])
	}
	if imgs.Images[2].Data == nil || *imgs.Images[2].Data != want {
		t.Errorf("Images[2] = %+v", imgs.Images[2])
	}

	ds, err := reg.Get("hanzi")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(ds.ContainerPath, 2); err != nil {
		t.Fatal(err)
	}
	_, err = h.GetImages(ctx, &dto.GetImagesRequest{Name: "hanzi", Hashes: []string{"h0"}})
	apiErr = wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeStorageError)
	if !errors.Is(err, container.ErrIOFault) {
		t.Errorf("err = %v, want wrapped ErrIOFault", err)
	}
	if strings.Contains(apiErr.Error(), ds.ContainerPath) {
		t.Errorf("message %q leaks the path", apiErr.Error())
	}
}

func TestFlagHandler(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	h := &FlagHandler{Registry: reg}
	ds, err := reg.Get("hanzi")
	if err != nil {
		t.Fatal(err)
	}

	rec, err := h.MarkRecordInvalid(ctx, &dto.RecordFlagRequest{Name: "hanzi", Hash: "h1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(rec.Record), `"hash":"h1"`) {
		t.Errorf("Record = %s", rec.Record)
	}
	if !ds.IsRecordInvalid("h1") {
		t.Error("h1 should be invalid")
	}

	_, err = h.MarkRecordInvalid(ctx, &dto.RecordFlagRequest{Name: "hanzi", Hash: "nope"})
	wantAPIError(t, err, http.StatusNotFound, dto.ErrorCodeRecordNotFound)

	msg, err := h.MarkRecordValid(ctx, &dto.RecordFlagRequest{Name: "hanzi", Hash: "h1"})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Message != `Marked "h1" as valid record.` {
		t.Errorf("Message = %q", msg.Message)
	}
	if ds.IsRecordInvalid("h1") {
		t.Error("h1 should be valid")
	}

	tests := []struct {
		name string
		call func() (*dto.MessageResponse, error)
		want string
	}{
		{"font invalid", func() (*dto.MessageResponse, error) {
			return h.MarkFontInvalid(ctx, &dto.FontFlagRequest{Name: "hanzi", Font: "f1"})
		}, "Marked f1 as invalid."},
		{"font valid", func() (*dto.MessageResponse, error) {
			return h.MarkFontValid(ctx, &dto.FontFlagRequest{Name: "hanzi", Font: "f1"})
		}, "Marked f1 as valid."},
		{"label complete", func() (*dto.MessageResponse, error) {
			return h.MarkLabelCompleted(ctx, &dto.LabelFlagRequest{Name: "hanzi", Label: "a"})
		}, `Marked label "a" as done.`},
		{"label incomplete", func() (*dto.MessageResponse, error) {
			return h.MarkLabelIncomplete(ctx, &dto.LabelFlagRequest{Name: "hanzi", Label: "a"})
		}, `Marked label "a" as not fully inspected.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.call()
			if err != nil {
				t.Fatal(err)
			}
			if got.Message != tt.want {
				t.Errorf("Message = %q, want %q", got.Message, tt.want)
			}
		})
	}

	_, err = h.MarkFontInvalid(ctx, &dto.FontFlagRequest{Name: "nope", Font: "f1"})
	wantAPIError(t, err, http.StatusNotFound, dto.ErrorCodeDatasetNotFound)

	// Persistence failures roll back and surface as storage errors.
	if err := os.RemoveAll(ds.Path); err != nil {
		t.Fatal(err)
	}
	_, err = h.MarkLabelCompleted(ctx, &dto.LabelFlagRequest{Name: "hanzi", Label: "b"})
	wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeStorageError)
	if got := ds.Info().CompletedLabels; len(got) != 0 {
		t.Errorf("CompletedLabels = %v, want rolled back", got)
	}
}

func TestHealthHandler(t *testing.T) {
	for _, version := range []string{"1.0.0", "devel", ""} {
		resp, err := NewHealthHandler(version).Health(context.Background(), &dto.HealthRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if resp.Status != "ok" || resp.Version != version {
			t.Errorf("Health() = %+v", resp)
		}
	}
}

func TestGetMetadataSchema(t *testing.T) {
	resp, err := GetMetadataSchema(context.Background(), &dto.SchemaRequest{})
	if err != nil {
		t.Fatal(err)
	}
	var s struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(resp.Schema, &s); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(s.Required, ","), "records") {
		t.Errorf("required = %v", s.Required)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"api error", dto.DatasetNotFound("x"), http.StatusNotFound, dto.ErrorCodeDatasetNotFound},
		{"wrapped api error", fmt.Errorf("ctx: %w", dto.BadRequest("bad")), http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp dto.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.code)
			}
		})
	}
}

func TestImageHandlerCorruptPayload(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	h := &ImageHandler{Registry: reg, Resolver: inspect.NewResolver("")}
	ds, err := reg.Get("hanzi")
	if err != nil {
		t.Fatal(err)
	}
	rec, err := ds.FindRecordByHash("h0")
	if err != nil {
		t.Fatal(err)
	}
	// Keep the frame header, garble the codec payload.
	f, err := os.OpenFile(ds.ContainerPath, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	garbage := []byte(strings.Repeat("\xff", int(rec.SeekEnd-rec.SeekStart)-codec.HeaderSize))
	if _, err := f.WriteAt(garbage, int64(rec.SeekStart)+codec.HeaderSize); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = h.GetImage(ctx, &dto.GetImageRequest{Name: "hanzi", Hash: "h0"})
	wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeStorageError)
	if !errors.Is(err, codec.ErrCorrupt) {
		t.Errorf("err = %v, want wrapped ErrCorrupt", err)
	}
	_, err = h.GetImages(ctx, &dto.GetImagesRequest{Name: "hanzi", Hashes: []string{"h1", "h0"}})
	wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeStorageError)

	// Other records are untouched.
	if _, err := h.GetImage(ctx, &dto.GetImageRequest{Name: "hanzi", Hash: "h1"}); err != nil {
		t.Errorf("h1: %v", err)
	}
}

func TestMarkFontInvalidLeavesRecords(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	h := &FlagHandler{Registry: reg}
	if _, err := h.MarkFontInvalid(ctx, &dto.FontFlagRequest{Name: "hanzi", Font: "f1"}); err != nil {
		t.Fatal(err)
	}
	ds, err := reg.Get("hanzi")
	if err != nil {
		t.Fatal(err)
	}
	info := ds.Info()
	if len(info.InvalidFonts) != 1 || info.InvalidFonts[0] != "f1" {
		t.Errorf("InvalidFonts = %v", info.InvalidFonts)
	}
	if len(info.InvalidRecords) != 0 {
		t.Errorf("InvalidRecords = %v, want none", info.InvalidRecords)
	}
}
