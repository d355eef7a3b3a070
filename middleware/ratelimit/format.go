package ratelimit

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

// formatRetryAfter devolve segundos inteiros para o header Retry-After.
func formatRetryAfter(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return formatInt64(int64(d / time.Second))
}
