package constants

// JobStatus is the canonical terminal status for archived jobs.
type JobStatus string

// Stable values (store these exact strings in the history DB).
const (
	JobStatusCompleted JobStatus = "COMPLETED" // recognition + extraction succeeded
	JobStatusFailed    JobStatus = "FAILED"    // acquisition or recognition failed
)

// Environment selects which delivery endpoint/credential a job reports to.
type Environment string

const (
	EnvStaging    Environment = "staging"
	EnvProduction Environment = "production"
)

// NormalizeEnvironment defaults anything unrecognized to staging.
func NormalizeEnvironment(s string) Environment {
	if Environment(s) == EnvProduction {
		return EnvProduction
	}
	return EnvStaging
}
