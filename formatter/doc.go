// Package formatter serializes build documents to JSON files. Per-route and
// schedule documents are written compact to keep client downloads small; the
// manifest is indented for human inspection.
package formatter
