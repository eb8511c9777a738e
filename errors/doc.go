// Package errors provides structured error types for the object writer
// and module loader.
//
// Every error carries a Phase (where in processing it occurred) and a
// Kind (what went wrong), so callers can match with errors.Is against a
// prototype without string comparison:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseStage, Kind: errors.KindAllocation}) {
//	    // native memory exhausted during staging
//	}
package errors
