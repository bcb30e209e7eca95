package domain

// CollectionBlob is the on-disk form of a collection: every document
// keyed by its "_id", plus the collection's metadata. FileService reads
// and writes exactly this shape through a BlobStore handle.
type CollectionBlob struct {
	Documents map[string]Document `json:"documents"`
	Metadata  *CollectionMetadata `json:"metadata"`
}

// NewCollectionBlob returns an empty blob for a freshly created
// collection.
func NewCollectionBlob(meta *CollectionMetadata) *CollectionBlob {
	return &CollectionBlob{
		Documents: make(map[string]Document),
		Metadata:  meta,
	}
}
