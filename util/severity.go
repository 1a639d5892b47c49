package util

import "github.com/ariebrainware/api-sentinel/model"

// MapSeverity derives the alert severity for a completed request. Injection
// suspicion or a server error always dominates; suspicious access alone is a
// warning; everything else is informational.
func MapSeverity(suspicious, injectionSuspected bool, statusCode int) string {
	if statusCode >= 500 || injectionSuspected {
		return model.SeverityCritical
	}
	if suspicious {
		return model.SeverityWarning
	}
	return model.SeverityInfo
}

// DurationBucket clamps an elapsed duration in seconds into its reporting bin.
// Bins are half-open: a request taking exactly 0.1s lands in "<500ms".
func DurationBucket(seconds float64) string {
	switch {
	case seconds < 0.1:
		return model.BucketUnder100ms
	case seconds < 0.5:
		return model.BucketUnder500ms
	case seconds < 1:
		return model.BucketUnder1s
	case seconds < 2:
		return model.BucketUnder2s
	default:
		return model.BucketOver2s
	}
}
