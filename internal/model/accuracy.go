package model

// UserAccuracyRecord summarizes one user's performance against the verified
// ground-truth subset.
type UserAccuracyRecord struct {
	UserID   string
	Total    int // classifications by this user across the dataset
	Verified int // classifications on verified subjects
	Correct  int // verified classifications matching the known answer
	Accuracy float64
	// HasAccuracy is false when Verified is below the configured minimum;
	// Accuracy is then meaningless and callers must apply their default
	// policy instead of reading it.
	HasAccuracy bool
}
