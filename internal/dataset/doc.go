// Package dataset manages datasets on disk: the metadata index of each
// dataset, its quality flags and the registry of all datasets.
//
// A dataset is a directory holding a record container (dataset.bin) and a
// JSON metadata sidecar (metadata.json). Records never change at runtime;
// only the invalid record, invalid font and completed label sets do, and
// every change is written back to metadata.json after the previous version
// has been preserved as metadata.json.<mtime in unix nanoseconds>.
package dataset
