package types

import "errors"

// Failure taxonomy for per-station pipeline runs. The orchestrator classifies
// step errors with errors.Is against these sentinels and records the outcome
// in the station's RunReport instead of propagating.
var (
	// ErrSourceUnavailable: the upstream observations API could not be
	// reached (network error, timeout, 5xx). A later run may succeed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceDataInvalid: the upstream answered but the payload could not
	// be decoded, or the request was rejected as malformed. Retrying without
	// a source-side fix will not help, but other stations are unaffected.
	ErrSourceDataInvalid = errors.New("source data invalid")

	// ErrStoreUnavailable: the persistence layer is unreachable or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreConstraint: a key constraint fired despite the upsert design.
	// This indicates a schema or key-derivation bug and is logged loudly.
	ErrStoreConstraint = errors.New("store constraint violation")
)
