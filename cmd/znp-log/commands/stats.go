package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/znp-protocol/znp-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Items             map[string]*ItemStats
	Sessions          map[string]*SessionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ItemStats counts exchanges of one item.
type ItemStats struct {
	Reads  int
	Writes int
	Errors int
	Bytes  int
}

// SessionStats holds statistics for a single NVRAM session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Firmware  string
	Writes    int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats, err := collectStats(reader)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(reader *log.Reader) (*Stats, error) {
	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Items:             make(map[string]*ItemStats),
		Sessions:          make(map[string]*SessionStats),
	}

	for event, err := range reader.Events() {
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		sess, ok := stats.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
				Firmware:  event.Firmware,
			}
			stats.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}

		switch {
		case event.Item != nil:
			is := stats.item(itemName(event.Item.ItemID, event.Item.SubID))
			is.Bytes += event.Item.Size
			if event.Item.Operation == log.OperationWrite {
				is.Writes++
				sess.Writes++
			} else {
				is.Reads++
			}
		case event.Error != nil:
			stats.Errors++
			stats.item(itemName(event.Error.ItemID, event.Error.SubID)).Errors++
		}
	}
	return stats, nil
}

func (s *Stats) item(name string) *ItemStats {
	is, ok := s.Items[name]
	if !ok {
		is = &ItemStats{}
		s.Items[name] = is
	}
	return is
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Z-Stack NVRAM Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryItem, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Items) > 0 {
		fmt.Fprintln(w, "Items:")
		for _, name := range slices.Sorted(maps.Keys(stats.Items)) {
			is := stats.Items[name]
			fmt.Fprintf(w, "  %-28s %d reads, %d writes, %d bytes", name, is.Reads, is.Writes, is.Bytes)
			if is.Errors > 0 {
				fmt.Fprintf(w, ", %d errors", is.Errors)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		// Sort by first seen time
		ids := slices.SortedFunc(maps.Keys(stats.Sessions), func(a, b string) int {
			return stats.Sessions[a].FirstSeen.Compare(stats.Sessions[b].FirstSeen)
		})

		fmt.Fprintln(w)
		for _, id := range ids {
			s := stats.Sessions[id]
			duration := s.LastSeen.Sub(s.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, %d writes, duration %s\n", shortenSessionID(id), s.Events, s.Writes, duration)
			if s.Firmware != "" {
				fmt.Fprintf(w, "           Firmware: Z-Stack %s\n", s.Firmware)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
