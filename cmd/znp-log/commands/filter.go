package commands

import (
	"fmt"
	"io"

	"github.com/znp-protocol/znp-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Criteria

	Output string
}

// RunFilter filters the log file and writes matching events to a new file.
// It reports the number of copied events to w.
func RunFilter(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.BuildFilter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	// Create file logger to write filtered events
	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
		count++
	}

	if dropped := logger.Dropped(); dropped > 0 {
		return fmt.Errorf("failed to write %d of %d events", dropped, count)
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, opts.Output)
	return nil
}
