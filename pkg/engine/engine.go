// Package engine drives the external ffmpeg transcoder to apply one effect
// filter chain to one downloaded voice clip, with guaranteed temp cleanup.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicemorph/pkg/config"
	"voicemorph/pkg/effects"
)

const (
	defaultFFmpegPath = "ffmpeg"
	defaultTimeout    = 60 * time.Second
	// Telegram voice notes are OGG/Opus; libopus only accepts a fixed set of
	// sample rates, so the output is always resampled back to 48 kHz after
	// rate-changing stages like asetrate.
	outputSampleRate = "48000"
	stderrTailLimit  = 400
)

// Source is a remote voice asset whose bytes can be fetched once.
type Source interface {
	Fetch(ctx context.Context, w io.Writer) error
}

// Runner invokes the external transcoder binary with prepared arguments.
type Runner func(ctx context.Context, path string, args []string) error

// Output is the transcoded voice asset, open for read.
//
// Ownership transfers to the caller: Release must be called after the asset
// has been sent. Release is idempotent.
type Output struct {
	EffectID string
	Path     string

	file *os.File
	once sync.Once
}

// File returns the open output file positioned at the start.
func (o *Output) File() *os.File {
	return o.file
}

// Release closes the output file and removes it from disk.
func (o *Output) Release() {
	o.once.Do(func() {
		if o.file != nil {
			_ = o.file.Close()
		}
		_ = os.Remove(o.Path)
	})
}

// Engine materializes effect filter chains and runs ffmpeg over local files.
type Engine struct {
	catalog    *effects.Catalog
	ffmpegPath string
	timeout    time.Duration
	tempDir    string
	log        *slog.Logger

	// run is replaceable in tests so they do not need ffmpeg installed.
	run Runner
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithRunner replaces the external transcoder invocation. Tests use it to
// run without ffmpeg installed.
func WithRunner(run Runner) Option {
	return func(e *Engine) {
		if run != nil {
			e.run = run
		}
	}
}

// New constructs a transcode engine from configuration.
func New(catalog *effects.Catalog, cfg config.TranscoderConfig, log *slog.Logger, opts ...Option) *Engine {
	if log == nil {
		log = slog.Default()
	}

	ffmpegPath := strings.TrimSpace(cfg.FFmpegPath)
	if ffmpegPath == "" {
		ffmpegPath = defaultFFmpegPath
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	tempDir := strings.TrimSpace(cfg.TempDir)
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	eng := &Engine{
		catalog:    catalog,
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
		tempDir:    tempDir,
		log:        log.With("component", "engine"),
		run:        execRunner,
	}

	for _, opt := range opts {
		opt(eng)
	}

	return eng
}

// Transcode downloads the source asset, applies the effect's filter graph in
// one ffmpeg invocation, and returns the output asset open for read.
//
// The local input file is always removed before return. On any failure the
// partial output is removed too; on success output cleanup is deferred to the
// caller via Output.Release.
func (e *Engine) Transcode(ctx context.Context, src Source, effectID string) (*Output, error) {
	effect, err := e.catalog.Lookup(effectID)
	if err != nil {
		return nil, NewError(CategoryUnknownEffect, "effect is not in the catalog", err)
	}

	requestID := uuid.NewString()
	inputPath := filepath.Join(e.tempDir, "voicemorph-"+requestID+"-in.ogg")
	outputPath := filepath.Join(e.tempDir, "voicemorph-"+requestID+"-out.ogg")

	if err := e.download(ctx, src, inputPath); err != nil {
		return nil, err
	}
	defer func() {
		_ = os.Remove(inputPath)
	}()

	graph := effect.Chain.Graph()
	e.log.Debug("Running transcoder", "effect", effectID, "graph", graph, "input", inputPath)

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Deferred so the partial output is removed even when the runner panics.
	transcoded := false
	defer func() {
		if !transcoded {
			_ = os.Remove(outputPath)
		}
	}()

	started := time.Now()
	if err := e.run(runCtx, e.ffmpegPath, buildArgs(inputPath, graph, outputPath)); err != nil {
		return nil, NewError(CategoryTranscodeFailed, "transcoder did not succeed", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		return nil, NewError(CategoryTranscodeFailed, "transcoder produced no readable output", err)
	}

	e.log.Info("Transcode finished", "effect", effectID, "duration", time.Since(started), "output", outputPath)

	transcoded = true
	return &Output{EffectID: effectID, Path: outputPath, file: file}, nil
}

// download streams the remote asset into a fresh local input file.
//
// The file is removed here on every failure so callers only own it once
// download has fully succeeded. Cleanup runs via defer so that a panicking
// Fetch cannot leave the file or its handle behind.
func (e *Engine) download(ctx context.Context, src Source, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return NewError(CategoryInternal, "create local input file", err)
	}

	downloaded := false
	defer func() {
		if downloaded {
			return
		}
		_ = file.Close()
		_ = os.Remove(path)
	}()

	if err := src.Fetch(ctx, file); err != nil {
		return NewError(CategoryDownloadFailed, "fetch source asset", err)
	}

	if err := file.Close(); err != nil {
		return NewError(CategoryInternal, "flush local input file", err)
	}

	downloaded = true
	return nil
}

// buildArgs renders the single ffmpeg invocation for one filter graph.
func buildArgs(inputPath string, graph string, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-af", graph,
		"-ar", outputSampleRate,
		"-c:a", "libopus",
		outputPath,
	}
}

// execRunner runs the transcoder as an external process and surfaces its
// stderr tail on non-zero exit.
func execRunner(ctx context.Context, path string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("transcoder interrupted: %w", ctxErr)
		}
		return fmt.Errorf("%w: %s", err, stderrTail(stderr.String()))
	}

	return nil
}

func stderrTail(output string) string {
	trimmed := strings.TrimSpace(output)
	if len(trimmed) <= stderrTailLimit {
		return trimmed
	}

	return "..." + trimmed[len(trimmed)-stderrTailLimit:]
}
