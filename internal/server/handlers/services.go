// Defines shared service dependencies for handlers.

// Package handlers implements the dataset inspection API.
package handlers

import (
	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/inspect"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Registry *dataset.Registry
	Resolver *inspect.Resolver
}

// Config holds configuration values needed by handlers.
type Config struct {
	Version string
	// MaxRequestBodyBytes limits request bodies. 0 means no limit.
	MaxRequestBodyBytes int64
	// StaticDir holds the web UI. Empty serves the UI embedded in the binary.
	StaticDir string
	// WritePasswordHash is a bcrypt hash protecting flag changes. Empty
	// leaves them open.
	WritePasswordHash string
}
