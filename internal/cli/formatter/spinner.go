package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// busyFrames is the animation drawn while a blocking call runs.
var busyFrames = spinner.MiniDot

// Busy runs fn while animating msg on out, then clears the line. Only the
// animation goroutine writes to out until fn returns.
func Busy[T any](out io.Writer, msg string, fn func() (T, error)) (T, error) {
	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(busyFrames.FPS)
		defer ticker.Stop()
		for i := 0; ; i++ {
			frame := busyFrames.Frames[i%len(busyFrames.Frames)]
			fmt.Fprintf(out, "\r  %s %s", StylePurple.Render(frame), Dim(msg))
			select {
			case <-stop:
				fmt.Fprint(out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()

	v, err := fn()
	close(stop)
	<-stopped
	return v, err
}
