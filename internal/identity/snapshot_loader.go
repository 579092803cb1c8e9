package identity

import (
	"context"

	"github.com/pavankumar-vh/VisionID/internal/facestore"

	"go.uber.org/zap"
)

// SnapshotLoader adapts the identity repository to the facestore. Rows with
// a corrupt embedding buffer are skipped rather than poisoning the snapshot.
type SnapshotLoader struct {
	repo Repository
}

func NewSnapshotLoader(repo Repository) SnapshotLoader {
	return SnapshotLoader{repo: repo}
}

func (l SnapshotLoader) LoadEntries(ctx context.Context) ([]facestore.Entry, error) {
	const batch = 1000

	var entries []facestore.Entry
	for offset := 0; ; offset += batch {
		rows, err := l.repo.FindAll(ctx, offset, batch)
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			vec, err := facestore.DecodeEmbedding(row.Embedding)
			if err != nil {
				zap.L().Named("identity.snapshot").Warn("skipping corrupt embedding",
					zap.String("identity_id", row.ID.String()), zap.Error(err))
				continue
			}
			entries = append(entries, facestore.Entry{
				ID:        row.ID,
				Name:      row.Name,
				Embedding: vec,
				CreatedAt: row.CreatedAt,
			})
		}

		if len(rows) < batch {
			return entries, nil
		}
	}
}
