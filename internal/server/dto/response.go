// Defines API response types.

package dto

import "encoding/json"

// DatasetsResponse lists the dataset names, alphabetic names first.
type DatasetsResponse struct {
	Datasets []string `json:"datasets"`
}

// DatasetMetadata is the dataset summary without its records.
type DatasetMetadata struct {
	Source          string   `json:"source"`
	Content         string   `json:"content"`
	Labels          []string `json:"labels"`
	InvalidRecords  []string `json:"invalid_records"`
	InvalidFonts    []string `json:"invalid_fonts"`
	CompletedLabels []string `json:"completed_labels"`
}

// DatasetInfoResponse is the response to GetDatasetRequest.
type DatasetInfoResponse struct {
	Name     string          `json:"name"`
	Metadata DatasetMetadata `json:"metadata"`
}

// LabelResponse lists the records of one label in stored order.
//
// Records are serialized with their original keys, including unknown ones.
type LabelResponse struct {
	Dataset string            `json:"dataset"`
	Label   string            `json:"label"`
	Records []json.RawMessage `json:"records"`
}

// RecordResponse returns one record.
type RecordResponse struct {
	Record json.RawMessage `json:"record"`
}

// ImageResponse returns one base64 encoded image.
type ImageResponse struct {
	Image string `json:"image"`
}

// ImageData is one entry of ImagesResponse. Data is null when the hash is not
// in the dataset.
type ImageData struct {
	Hash string  `json:"hash"`
	Data *string `json:"data"`
}

// ImagesResponse returns the images in request order.
type ImagesResponse struct {
	Images []ImageData `json:"images"`
}

// MessageResponse acknowledges a flag change.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is a response from the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SchemaResponse is a JSON Schema document.
type SchemaResponse struct {
	Schema json.RawMessage
}

// MarshalJSON writes the schema as is.
func (s *SchemaResponse) MarshalJSON() ([]byte, error) {
	return s.Schema, nil
}
