package logctx

import (
	"fmt"
	"strings"
	"time"
)

// Stringify full event, omitting absent parts
func (event Event) Format() (text string) {
	parts := make([]string, 0, 4)
	if !event.Timestamp.IsZero() {
		parts = append(parts, "["+padTimestamp(event.Timestamp)+"]")
	}
	if len(event.Tags) > 0 {
		parts = append(parts, "["+strings.Join(event.Tags, "/")+"]")
	}
	if event.Severity != "" {
		parts = append(parts, "["+event.Severity+"]")
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}

	// No newline, message creator determines newlines
	text = strings.Join(parts, " ")
	return
}

// Fixed width RFC3339 timestamp (nanoseconds zero padded to 9 digits)
func padTimestamp(timestamp time.Time) (formatted string) {
	formatted = timestamp.Format(time.RFC3339Nano)

	dot := strings.IndexByte(formatted, '.')
	if dot < 0 {
		return
	}

	// Zone starts at the first Z, + or - after the fraction
	rest := formatted[dot+1:]
	zone := strings.IndexAny(rest, "Z+-")
	if zone < 0 {
		return
	}

	fraction := rest[:zone]
	if len(fraction) < 9 {
		fraction += strings.Repeat("0", 9-len(fraction))
	}
	formatted = fmt.Sprintf("%s.%s%s", formatted[:dot], fraction, rest[zone:])
	return
}
