package commonModels

import "context"

type StatusUpdate struct {
	ChunkCount    int
	HasEmbeddings bool
	Status        ProcessingStatus
}

type ListFilter struct {
	Status ProcessingStatus
	Limit  int
	Offset int
}

// DocumentRegistry persists Document records. Insert is idempotent on FileName.
type DocumentRegistry interface {
	Insert(ctx context.Context, doc Document) (id string, existed bool, err error)
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error
	Get(ctx context.Context, id string) (Document, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Document, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (RegistryStats, error)
	Ping(ctx context.Context) error
}
