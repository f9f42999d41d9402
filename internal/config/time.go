package config

import "time"

const minTimeout = time.Second

type Timer struct {
	Days    uint32 `json:"days" yaml:"days"`
	Hours   uint32 `json:"hours" yaml:"hours"`
	Minutes uint32 `json:"minutes" yaml:"minutes"`
	Seconds uint32 `json:"seconds" yaml:"seconds"`
}

// CalculateTimeout converts a timer into a duration of at least one second.
func CalculateTimeout(timer Timer) time.Duration {
	intervalMs := CalculateMilliseconds(timer)

	if intervalMs < uint64(minTimeout/time.Millisecond) {
		return minTimeout
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMilliseconds(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

// TimerFromDuration splits d into whole days, hours, minutes and seconds.
func TimerFromDuration(d time.Duration) Timer {
	if d < 0 {
		return Timer{}
	}
	secs := uint64(d / time.Second)
	return Timer{
		Days:    uint32(secs / 86400),
		Hours:   uint32(secs % 86400 / 3600),
		Minutes: uint32(secs % 3600 / 60),
		Seconds: uint32(secs % 60),
	}
}
