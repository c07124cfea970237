// Defines API request types.

package dto

import (
	"bytes"
	"encoding/json"
)

// Messages of the batch image endpoint, kept verbatim for the inspection UI.
const (
	msgBodyNotStringList = "Request body must be a list of string!"
	msgBodyNotJSON       = "Body data is not valid JSON data!"
	msgBodyNotList       = "Body data is not a list!"
	msgBodyNotString     = "The list must only contain string!"
)

// InvalidJSON is returned for a request body that is not JSON at all.
func InvalidJSON() *APIError {
	return BadRequest(msgBodyNotJSON)
}

// ListDatasetsRequest is a request to list the datasets.
type ListDatasetsRequest struct{}

// Validate validates the request.
func (r *ListDatasetsRequest) Validate() error {
	return nil
}

// GetDatasetRequest is a request to get a dataset summary.
type GetDatasetRequest struct {
	Name string `path:"name" json:"-"`
}

// Validate validates the request.
func (r *GetDatasetRequest) Validate() error {
	return requireName(r.Name)
}

// GetLabelRequest is a request to list the records of one label.
type GetLabelRequest struct {
	Name  string `path:"name" json:"-"`
	Label string `path:"label" json:"-"`
}

// Validate validates the request.
func (r *GetLabelRequest) Validate() error {
	return requireName(r.Name)
}

// GetImageRequest is a request for the image of one record.
type GetImageRequest struct {
	Name string `path:"name" json:"-"`
	Hash string `path:"hash" json:"-"`
}

// Validate validates the request.
func (r *GetImageRequest) Validate() error {
	return requireName(r.Name)
}

// GetImagesRequest is a request for the images of many records. The body is
// a bare JSON list of hashes.
type GetImagesRequest struct {
	Name   string `path:"name" json:"-"`
	Hashes []string
}

// UnmarshalJSON accepts only a list of strings.
func (r *GetImagesRequest) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return BadRequest(msgBodyNotList)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return InvalidJSON()
	}
	hashes := make([]string, len(items))
	for i, item := range items {
		// null would silently decode into "".
		if len(item) == 0 || item[0] != '"' {
			return BadRequest(msgBodyNotString).WithDetail("index", i)
		}
		if err := json.Unmarshal(item, &hashes[i]); err != nil {
			return BadRequest(msgBodyNotString).WithDetail("index", i)
		}
	}
	r.Hashes = hashes
	return nil
}

// Validate validates the request.
func (r *GetImagesRequest) Validate() error {
	if err := requireName(r.Name); err != nil {
		return err
	}
	if len(r.Hashes) == 0 {
		return BadRequest(msgBodyNotStringList)
	}
	return nil
}

// RecordFlagRequest marks a record as invalid or valid.
type RecordFlagRequest struct {
	Name string `path:"name" json:"-"`
	Hash string `path:"hash" json:"-"`
}

// Validate validates the request.
func (r *RecordFlagRequest) Validate() error {
	if err := requireName(r.Name); err != nil {
		return err
	}
	if r.Hash == "" {
		return BadRequest("hash is required")
	}
	return nil
}

// FontFlagRequest marks a font as invalid or valid.
type FontFlagRequest struct {
	Name string `path:"name" json:"-"`
	Font string `path:"font" json:"-"`
}

// Validate validates the request.
func (r *FontFlagRequest) Validate() error {
	if err := requireName(r.Name); err != nil {
		return err
	}
	if r.Font == "" {
		return BadRequest("font is required")
	}
	return nil
}

// LabelFlagRequest marks a label as completed or not.
type LabelFlagRequest struct {
	Name  string `path:"name" json:"-"`
	Label string `path:"label" json:"-"`
}

// Validate validates the request.
func (r *LabelFlagRequest) Validate() error {
	if err := requireName(r.Name); err != nil {
		return err
	}
	if r.Label == "" {
		return BadRequest("label is required")
	}
	return nil
}

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate validates the request.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is a request for the metadata JSON Schema.
type SchemaRequest struct{}

// Validate validates the request.
func (r *SchemaRequest) Validate() error {
	return nil
}

func requireName(name string) error {
	if name == "" {
		return BadRequest("dataset name is required")
	}
	return nil
}
