package retrieval

import (
	"github.com/glowstack/dermassist/catalog"
	"github.com/glowstack/dermassist/vector"
)

// DocumentSchema lists the attributes the document index can filter on.
// Price-style constraints have no meaning for documents and are dropped at
// the adapter boundary.
var DocumentSchema = map[string]bool{
	catalog.AttrCategory: true,
	"tags":               true,
}

// NewCatalogSource adapts a vector store holding catalog records. The full
// catalog schema is available for filtering.
func NewCatalogSource(store vector.VectorStore, embedder vector.Embedder, opts ...VectorSourceOption) *VectorSource {
	return NewVectorSource(SourceCatalog, store, embedder, catalog.Schema, opts...)
}

// NewDocumentSource adapts a vector store holding document chunks. Only tag
// and category constraints apply.
func NewDocumentSource(store vector.VectorStore, embedder vector.Embedder, opts ...VectorSourceOption) *VectorSource {
	return NewVectorSource(SourceDocument, store, embedder, DocumentSchema, opts...)
}
