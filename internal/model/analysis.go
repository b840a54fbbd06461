package model

import "time"

// Recommendation is the qualitative verdict of a dry run.
type Recommendation string

const (
	RecommendFastMigration Recommendation = "fast migration safe"
	RecommendReview        Recommendation = "review before proceeding"
	RecommendBatching      Recommendation = "recommend batching"
)

// KindImpact partitions the distinct natural keys of one entity kind into
// keys already resolvable in the target store and keys a run would create.
type KindImpact struct {
	Kind     EntityKind `json:"kind"`
	Existing []string   `json:"existing"`
	New      []string   `json:"new"`
}

// Total returns the number of distinct keys of this kind.
func (k KindImpact) Total() int {
	return len(k.Existing) + len(k.New)
}

// ImpactAnalysis is the read-only prediction of what a migration run over
// the same window would do.
type ImpactAnalysis struct {
	Window             Window         `json:"window"`
	GeneratedAt        time.Time      `json:"generated_at"`
	SourceDigest       string         `json:"source_digest"`
	SourceRows         int            `json:"source_rows"`
	Aggregates         int            `json:"aggregates"`
	MalformedRows      int            `json:"malformed_rows"`
	AlreadyMigrated    int            `json:"already_migrated"`
	Kinds              []KindImpact   `json:"kinds"`
	TotalKeys          int            `json:"total_keys"`
	TotalExisting      int            `json:"total_existing"`
	TotalNew           int            `json:"total_new"`
	ExistingPercent    float64        `json:"existing_percent"`
	NewPercent         float64        `json:"new_percent"`
	// SectorsMissingZone lists existing sectors a run would link to a zone.
	SectorsMissingZone []string       `json:"sectors_missing_zone"`
	Recommendation     Recommendation `json:"recommendation"`
	Notes              []string       `json:"notes"`
}

// Kind returns the impact entry for k, or an empty entry.
func (a *ImpactAnalysis) Kind(k EntityKind) KindImpact {
	for _, ki := range a.Kinds {
		if ki.Kind == k {
			return ki
		}
	}
	return KindImpact{Kind: k}
}
