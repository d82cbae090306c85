package ports

import "context"

// HashVerdict is the advisory verdict of a hash-reputation lookup
type HashVerdict string

const (
	HashVerdictClean      HashVerdict = "clean"
	HashVerdictSuspicious HashVerdict = "suspicious"
	HashVerdictMalicious  HashVerdict = "malicious"
	HashVerdictUnknown    HashVerdict = "unknown"
)

// ReputationResult is the outcome of one hash-reputation lookup
type ReputationResult struct {
	Found         bool        `json:"found"`
	Verdict       HashVerdict `json:"verdict"`
	MalwareFamily string      `json:"malware_family,omitempty"`
}

// HashReputationService is the external reputation collaborator.
//
// Lookups are advisory: callers must bound them with a context timeout and
// treat any error as an unknown verdict, never as a layer failure.
type HashReputationService interface {
	CheckHash(ctx context.Context, hash string) (ReputationResult, error)
}
