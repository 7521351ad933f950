package tracker

import (
	"fmt"
	"io"

	"github.com/scottastone/MouseTracker/pkg/cursor"
)

// Operator-facing messages
const (
	msgExiting        = "Exiting..."
	msgPaused         = "Paused, press any key to continue..."
	msgRateChange     = "Changing the sample rate at runtime is not supported"
	msgDisplayOff     = "Display disabled, press 'd' to show telemetry again"
	msgStreamingOnFmt = "Streaming: %v"
)

// RenderTelemetry writes one telemetry line:
//
//	Count:     1 Time:      0 X:  640 Y:  480 [LSL:ON ]
func RenderTelemetry(w io.Writer, count uint64, s cursor.Sample, streaming bool) error {
	tag := "LSL:OFF"
	if streaming {
		tag = "LSL:ON "
	}
	_, err := fmt.Fprintf(w, "Count:%6d Time:%7d X:%5d Y:%5d [%s]\n",
		count, s.Elapsed.Milliseconds(), s.X, s.Y, tag)
	return err
}
