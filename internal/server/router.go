// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/dsinspect/frontend"
	"github.com/maruel/dsinspect/internal/server/handlers"
	"github.com/maruel/dsinspect/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router.
// Serves API endpoints at /api/*, images at /images/* and the UI at /. The UI
// comes from cfg.StaticDir when set, the embedded one otherwise.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}
	dh := &handlers.DatasetHandler{Registry: svc.Registry}
	ih := &handlers.ImageHandler{Registry: svc.Registry, Resolver: svc.Resolver}
	fh := &handlers.FlagHandler{Registry: svc.Registry}
	hh := handlers.NewHealthHandler(cfg.Version)

	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limits))
	mux.Handle("GET /api/schema/metadata", Wrap(handlers.GetMetadataSchema, cfg, limits))

	// Datasets
	mux.Handle("GET /api/datasets", Wrap(dh.ListDatasets, cfg, limits))
	mux.Handle("GET /api/datasets/{name}", Wrap(dh.GetDataset, cfg, limits))
	mux.Handle("GET /api/datasets/{name}/{label}", Wrap(dh.GetLabel, cfg, limits))

	// Images
	mux.Handle("GET /images/{name}/{hash}", Wrap(ih.GetImage, cfg, limits))
	mux.Handle("POST /api/images/{name}", Wrap(ih.GetImages, cfg, limits))

	// Flags. The UI issues them as GET.
	auth := RequireWritePassword(cfg.WritePasswordHash)
	flags := []struct {
		path string
		h    http.Handler
	}{
		{"/api/record/invalid/{name}/{hash}", Wrap(fh.MarkRecordInvalid, cfg, limits)},
		{"/api/record/valid/{name}/{hash}", Wrap(fh.MarkRecordValid, cfg, limits)},
		{"/api/font/invalid/{name}/{font}", Wrap(fh.MarkFontInvalid, cfg, limits)},
		{"/api/font/valid/{name}/{font}", Wrap(fh.MarkFontValid, cfg, limits)},
		{"/api/label/complete/{name}/{label}", Wrap(fh.MarkLabelCompleted, cfg, limits)},
		{"/api/label/incomplete/{name}/{label}", Wrap(fh.MarkLabelIncomplete, cfg, limits)},
	}
	for _, f := range flags {
		h := auth(f.h)
		mux.Handle("GET "+f.path, h)
		mux.Handle("POST "+f.path, h)
	}

	// Static UI
	mux.Handle("GET /{$}", http.RedirectHandler("/index.html", http.StatusFound))
	var root http.FileSystem = http.FS(frontend.Files())
	if cfg.StaticDir != "" {
		root = http.Dir(cfg.StaticDir)
	}
	mux.Handle("GET /", WrapRaw(newStaticHandler(root), limits))
	return LogRequests(mux)
}

// newStaticHandler serves files from root. index.html is served directly since
// http.FileServer redirects it to the directory, which redirects back here.
func newStaticHandler(root http.FileSystem) http.Handler {
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.html" {
			files.ServeHTTP(w, r)
			return
		}
		f, err := root.Open(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer func() { _ = f.Close() }()
		st, err := f.Stat()
		if err != nil || st.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, st.Name(), st.ModTime(), f)
	})
}
