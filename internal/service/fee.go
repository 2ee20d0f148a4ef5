package service

import "time"

// BilledHours converts a parked duration into billable hours: the ceiling
// of the duration in hours, with a minimum of one hour. A stay of a single
// minute bills the same as a 59-minute stay; 61 minutes bills two hours.
func BilledHours(start, end time.Time) int64 {
	secs := int64(end.Sub(start) / time.Second)
	if secs <= 0 {
		return 1
	}
	hours := (secs + 3599) / 3600
	if hours < 1 {
		hours = 1
	}
	return hours
}

// ComputeFee is the fee calculator: pure, deterministic, no I/O. Both
// timestamps must carry the same canonical (UTC) representation used for
// session identity.
func ComputeFee(start, end time.Time, hourlyRate int64) int64 {
	return BilledHours(start, end) * hourlyRate
}
