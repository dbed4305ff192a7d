// Package connectors holds the document collections the indexer reads
// from. Each collection lists the source files of one document kind and
// reports changes to them.
package connectors
