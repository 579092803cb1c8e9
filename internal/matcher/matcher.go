// Package matcher answers "who is this vector" against a facestore snapshot.
package matcher

import (
	"os"
	"strconv"

	"github.com/pavankumar-vh/VisionID/internal/facestore"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the minimum cosine similarity for a match.
const DefaultThreshold = 0.6

const floatTolerance = 1e-9

type Result struct {
	Matched    bool
	IdentityID uuid.UUID
	Name       string
	Similarity float64
}

// Match scans every entry in the snapshot and returns the best match at or
// above threshold, or an unmatched result with similarity 0. Both sides are
// unit-norm, so cosine similarity is a plain dot product. Snapshot entries
// are ordered by CreatedAt ascending and the comparison is strict, so when
// two identities tie on similarity the earliest enrollment wins; repeated
// calls on the same snapshot always return the same result.
func Match(query []float64, snap *facestore.Snapshot, threshold float64) Result {
	best := Result{}
	bestScore := -1.0

	for _, entry := range snap.Entries() {
		score := floats.Dot(query, entry.Embedding)
		if score > bestScore {
			bestScore = score
			best.IdentityID = entry.ID
			best.Name = entry.Name
		}
	}

	// Clamp float drift so an exact self-match reports 1.0 and passes a
	// threshold of 1.0.
	if bestScore > 1-floatTolerance {
		bestScore = 1
	}

	if snap.Len() == 0 || bestScore < threshold {
		return Result{}
	}
	best.Matched = true
	best.Similarity = bestScore
	return best
}

// ThresholdFromEnv reads MATCH_THRESHOLD, falling back to the default for
// missing or unparseable values.
func ThresholdFromEnv() float64 {
	raw := os.Getenv("MATCH_THRESHOLD")
	if raw == "" {
		return DefaultThreshold
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || t <= 0 || t > 1 {
		return DefaultThreshold
	}
	return t
}
