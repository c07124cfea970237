package handlers

import (
	"context"
	"encoding/base64"

	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/inspect"
	"github.com/maruel/dsinspect/internal/server/dto"
)

// ImageHandler serves record payloads as base64.
type ImageHandler struct {
	Registry *dataset.Registry
	Resolver *inspect.Resolver
}

// GetImage returns the payload of one record.
func (h *ImageHandler) GetImage(ctx context.Context, req *dto.GetImageRequest) (*dto.ImageResponse, error) {
	ds, err := h.Registry.Get(req.Name)
	if err != nil {
		return nil, toAPIError(err, req.Name, req.Hash)
	}
	data, err := h.Resolver.ResolveOne(ctx, ds, req.Hash)
	if err != nil {
		return nil, toAPIError(err, req.Name, req.Hash)
	}
	return &dto.ImageResponse{Image: base64.StdEncoding.EncodeToString(data)}, nil
}

// GetImages returns the payloads of many records in request order. Unknown
// hashes get a null payload.
func (h *ImageHandler) GetImages(ctx context.Context, req *dto.GetImagesRequest) (*dto.ImagesResponse, error) {
	ds, err := h.Registry.Get(req.Name)
	if err != nil {
		return nil, toAPIError(err, req.Name, "")
	}
	imgs, _, err := h.Resolver.Resolve(ctx, ds, req.Hashes)
	if err != nil {
		return nil, toAPIError(err, req.Name, "")
	}
	// Duplicated hashes share the encoded string.
	encoded := make(map[string]*string, len(imgs))
	out := make([]dto.ImageData, len(imgs))
	for i, img := range imgs {
		out[i].Hash = img.Hash
		if img.Data == nil {
			continue
		}
		s, ok := encoded[img.Hash]
		if !ok {
			e := base64.StdEncoding.EncodeToString(img.Data)
			s = &e
			encoded[img.Hash] = s
		}
		out[i].Data = s
	}
	return &dto.ImagesResponse{Images: out}, nil
}
