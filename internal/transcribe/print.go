package transcribe

import (
	"fmt"
	"io"
	"time"
)

// PrintSegments returns a SegmentHandler that writes one line per segment
// to w, optionally prefixed with its time range.
func PrintSegments(w io.Writer, timestamps bool) SegmentHandler {
	return func(segments []Segment) {
		for _, seg := range segments {
			if timestamps {
				fmt.Fprintf(w, "[%s --> %s]  %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End), seg.Text)
				continue
			}
			fmt.Fprintln(w, seg.Text)
		}
	}
}

// formatTimestamp renders d as HH:MM:SS.mmm.
func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
