package media

import "context"

// Store converts a locally staged file into a durable public URL. Uploads
// are single-attempt: a failure anywhere aborts the calling flow.
type Store interface {
	Upload(ctx context.Context, localPath string) (string, error)
}
