package transfer

import "time"

// ObjectDescriptor is a source-side handle to one candidate file, produced
// during discovery. Immutable; lives for one sync pass.
type ObjectDescriptor struct {
	// SourceIdentity is the full object name at the source.
	SourceIdentity string

	// Size in bytes, as reported by the listing.
	Size int64

	// CreatedAt is when the object was created at the source.
	CreatedAt time.Time

	// LogicalDate is the calendar date the object is filed under, derived
	// from the date-structured source prefix.
	LogicalDate time.Time

	// DestinationKey is filled in by the orchestrator once the naming
	// function has run.
	DestinationKey string
}

// Outcome is the result of one attempted transfer. Consumed only by the
// orchestrator's fan-in loop; workers never touch shared state.
type Outcome struct {
	DestinationKey   string
	SourceIdentity   string
	Succeeded        bool
	BytesTransferred int64
	ChecksumMD5      string
	Attempts         int
	Duration         time.Duration

	// Err is set iff the transfer failed (or was cancelled before the
	// first attempt, in which case Attempts is zero).
	Err error

	// sourceCreatedAt rides along so the orchestrator can stamp the
	// ledger record without re-consulting the source.
	sourceCreatedAt time.Time
}

// DateRange returns the logical dates to poll, oldest first: the day of
// "until" and lookbackDays days before it.
func DateRange(until time.Time, lookbackDays int) []time.Time {
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	day := time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, lookbackDays+1)
	for i := lookbackDays; i >= 0; i-- {
		dates = append(dates, day.AddDate(0, 0, -i))
	}
	return dates
}
