// Command tclk-inspect prints the Trust Center device registry stored in an
// NVRAM backup document.
//
// The backup is restored into an in-memory radio, so the same code paths that
// serve a live coordinator decode it: address manager, link key tables and
// the TCLK seed.
//
// Usage:
//
//	tclk-inspect [flags] <backup.json>
//
// Flags:
//
//	-firmware string    Z-Stack generation of the backup: 1.2, 3.0, 3.30 (default "3.30")
//	-epid string        Extended PAN id whose TC frame counter to print
//	-json               Print devices as JSON
//	-events string      Append NVRAM exchanges to this CBOR log file
//	-rewrite string     Re-store the devices under the optimal seed and save the new backup here
//	-log-level string   Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Show every device of a 3.30 coordinator backup
//	tclk-inspect backup.json
//
//	# Include the frame counter of one network
//	tclk-inspect -epid dd:dd:dd:dd:dd:dd:dd:dd backup.json
//
//	# Pick the best seed for the stored keys and write a new backup
//	tclk-inspect -rewrite rehashed.json backup.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/znp-protocol/znp-go/pkg/backup"
	znplog "github.com/znp-protocol/znp-go/pkg/log"
	"github.com/znp-protocol/znp-go/pkg/nvram"
	"github.com/znp-protocol/znp-go/pkg/security"
	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// Config holds the inspector configuration.
type Config struct {
	Backup   string
	Firmware string
	EPID     string
	JSON     bool
	Events   string
	Rewrite  string
	LogLevel string
}

var config Config

func init() {
	flag.StringVar(&config.Firmware, "firmware", "3.30", "Z-Stack generation of the backup: 1.2, 3.0, 3.30")
	flag.StringVar(&config.EPID, "epid", "", "Extended PAN id whose TC frame counter to print")
	flag.BoolVar(&config.JSON, "json", false, "Print devices as JSON")
	flag.StringVar(&config.Events, "events", "", "Append NVRAM exchanges to this CBOR log file")
	flag.StringVar(&config.Rewrite, "rewrite", "", "Re-store the devices under the optimal seed and save the new backup here")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: backup file path required")
		flag.Usage()
		os.Exit(1)
	}
	config.Backup = flag.Arg(0)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, config, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// run inspects cfg.Backup, writing the report to out and diagnostics to errOut.
func run(ctx context.Context, cfg Config, out, errOut io.Writer) error {
	logger, err := newLogger(cfg.LogLevel, errOut)
	if err != nil {
		return err
	}

	doc, err := backup.NewFileStore(cfg.Backup).Load()
	if err != nil {
		return fmt.Errorf("loading backup: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("backup %s does not exist", cfg.Backup)
	}

	// Exchanges go to the debug log, and to the event file when asked for.
	sinks := []znplog.Logger{znplog.NewSlogAdapter(logger)}
	if cfg.Events != "" {
		fl, err := znplog.NewFileLogger(cfg.Events)
		if err != nil {
			return fmt.Errorf("opening event log: %w", err)
		}
		defer fl.Close()
		sinks = append(sinks, fl)
	}

	nvCfg := nvram.DefaultConfig()
	nvCfg.Logger = znplog.NewMultiLogger(sinks...)

	dev := nvram.NewMemoryDevice()
	nv, err := nvram.Open(dev, cfg.Firmware, nvCfg)
	if err != nil {
		return err
	}
	if err := backup.Restore(ctx, nv, doc); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}

	secCfg := security.DefaultConfig()
	secCfg.Logger = logger
	reg := security.NewRegistry(nv, secCfg)

	devices, err := reg.ReadDevices(ctx)
	if err != nil {
		return fmt.Errorf("reading devices: %w", err)
	}
	seed, hasSeed, err := reg.ReadSeed(ctx)
	if err != nil {
		return fmt.Errorf("reading seed: %w", err)
	}

	var counter *uint32
	if cfg.EPID != "" {
		epid, err := zigbee.ParseEUI64(cfg.EPID)
		if err != nil {
			return fmt.Errorf("invalid epid: %w", err)
		}
		c, err := reg.ReadTCFrameCounter(ctx, epid)
		if err != nil {
			return fmt.Errorf("reading frame counter: %w", err)
		}
		counter = &c
	}

	report := Report{Firmware: cfg.Firmware, Devices: devices, TCFrameCounter: counter}
	if hasSeed {
		report.Seed = &seed
	}
	if cfg.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if cfg.Rewrite != "" {
		return rewrite(ctx, reg, nv, devices, cfg.Rewrite, logger)
	}
	return nil
}

// rewrite stores devices again, letting the registry choose the seed, and
// saves the resulting NVRAM as a new backup. Counters keep their values.
func rewrite(ctx context.Context, reg *security.Registry, nv *nvram.NVRAM, devices []security.StoredDevice, path string, logger *slog.Logger) error {
	if err := reg.WriteDevices(ctx, devices, security.WithCounterIncrement(0)); err != nil {
		var capErr *nvram.CapacityError
		if errors.As(err, &capErr) {
			return fmt.Errorf("backup tables are too small: %w", err)
		}
		return fmt.Errorf("writing devices: %w", err)
	}

	doc, err := backup.Dump(ctx, nv, logger)
	if err != nil {
		return fmt.Errorf("dumping NVRAM: %w", err)
	}
	if err := backup.NewFileStore(path).Save(doc); err != nil {
		return fmt.Errorf("saving backup: %w", err)
	}
	logger.Info("backup rewritten", "path", path, "items", doc.Len())
	return nil
}
