// Command scanner reads a checkpoint code from a camera, or from the
// keyboard when the camera is unavailable, and records it as a visit on
// an active round.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rpggio/patrol/internal/config"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/scan"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "patrol server base URL")
		token     = flag.String("token", os.Getenv("PATROL_API_KEY"), "operator API key")
		roundID   = flag.String("round", "", "active round to record the visit on")
		cameraDir = flag.String("camera", "", "directory of frames to scan; empty goes straight to manual entry")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *roundID == "" {
		fmt.Fprintln(os.Stderr, "-round is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := scan.NewManager(scan.NewQRDecoder(), scan.Options{
		AcquireTimeout: cfg.Scan.AcquireTimeout,
		FrameInterval:  cfg.Scan.FrameInterval,
		MaxFailures:    cfg.Scan.MaxFailures,
	}, logger)
	defer manager.Close()

	code, err := readCode(ctx, manager, *cameraDir, os.Stdin, os.Stderr, logger)
	if err != nil {
		logger.Error("no code captured", "error", err)
		os.Exit(1)
	}

	rpc := newRPCClient(*serverURL, *token)
	result, err := rpc.recordVisitByCode(ctx, *roundID, code)
	if err != nil {
		logger.Error("visit not recorded", "code", code, "error", err)
		os.Exit(1)
	}
	if result.Duplicate {
		fmt.Printf("checkpoint %s already visited on this round\n", result.Visit.CheckpointID)
		return
	}
	fmt.Printf("visit recorded for checkpoint %s at %s\n", result.Visit.CheckpointID, result.Visit.VisitedAt.Format(time.RFC3339))
}

const scannerSession = "scanner"

// readCode runs one scan session. Device failures drop to manual entry
// on in; malformed typed codes are re-prompted.
func readCode(ctx context.Context, manager *scan.Manager, cameraDir string, in io.Reader, out io.Writer, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defer manager.Release(scannerSession)

	var camera scan.Camera = scan.NewDirectoryCamera(cameraDir)
	sess, err := manager.Open(ctx, scannerSession, camera)
	if err == nil {
		code, runErr := sess.Run(ctx)
		if runErr == nil {
			return code, nil
		}
		err = runErr
	}
	if !errors.Is(err, scan.ErrDeviceUnavailable) {
		return "", err
	}
	logger.Warn("camera unavailable, switching to manual entry", "reason", scan.ReasonOf(err))

	if err := sess.SwitchToManual(); err != nil {
		return "", err
	}

	lines := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "enter %d-digit checkpoint code: ", checkpoint.ManualCodeLength)
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		code, err := sess.SubmitManual(strings.TrimSpace(lines.Text()))
		if errors.Is(err, checkpoint.ErrMalformedCode) {
			fmt.Fprintln(out, "code must be exactly", checkpoint.ManualCodeLength, "digits")
			continue
		}
		return code, err
	}
}
