package sys

import "time"

var epoch = time.Now()

// NowMilliseconds returns a monotonic millisecond tick.
func NowMilliseconds() int64 {
	return time.Since(epoch).Milliseconds()
}

// NowMicroseconds returns a monotonic microsecond tick.
func NowMicroseconds() int64 {
	return time.Since(epoch).Microseconds()
}
