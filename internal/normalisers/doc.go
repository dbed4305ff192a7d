// Package normalisers provides the text extractors for source files and the
// registry that picks one by file extension. Each extractor knows how to
// turn one family of formats into plain text.
//
// Extractors are registered with the Registry at startup.
package normalisers
