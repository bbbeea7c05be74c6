package compression

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vigil/internal/config"
	"vigil/internal/events"
	"vigil/internal/fileutil"
	"vigil/internal/logging"
)

// Result describes the outcome of one compression run. When StoredOriginal
// is set every candidate failed and Path points back at the source file.
type Result struct {
	Path           string
	Codec          Codec
	OriginalBytes  int64
	FinalBytes     int64
	StoredOriginal bool
}

// Reduction returns the achieved size reduction in percent.
func (r Result) Reduction() float64 {
	if r.OriginalBytes == 0 {
		return 0
	}
	return float64(r.OriginalBytes-r.FinalBytes) / float64(r.OriginalBytes) * 100
}

// Compressor walks a plan's candidate list until one attempt meets the
// minimum shrink ratio, escalating the effort preset once when the target
// reduction is missed but the attempt still shrank the file.
type Compressor struct {
	cfg      *config.Config
	selector *Selector
	runner   Runner
	prober   Prober
	logger   *slog.Logger
}

// New builds a Compressor with exec-backed ffmpeg and ffprobe.
func New(cfg *config.Config, logger *slog.Logger) (*Compressor, error) {
	return NewWithTools(cfg, NewRunner(), NewProber(cfg.Compression.FFprobeBinary), logger)
}

// NewWithTools builds a Compressor with injected encoder tooling.
func NewWithTools(cfg *config.Config, runner Runner, prober Prober, logger *slog.Logger) (*Compressor, error) {
	selector, err := NewSelector(cfg)
	if err != nil {
		return nil, err
	}
	return &Compressor{
		cfg:      cfg,
		selector: selector,
		runner:   runner,
		prober:   prober,
		logger:   logging.NewComponentLogger(logger, "compression"),
	}, nil
}

// Compress shrinks the file at path. Candidate failures degrade to the next
// candidate; exhausting the list degrades to storing the original, which is
// a success for the event.
func (c *Compressor) Compress(ctx context.Context, path string) (Result, error) {
	plan, err := c.selector.Plan(path, c.cfg.Compression.TargetReduction)
	if err != nil {
		return Result{}, err
	}

	info, probeErr := c.prober.Probe(ctx, path)
	if probeErr != nil {
		c.logger.Warn("probe failed, storing original",
			logging.String("path", path), logging.Error(probeErr))
		return c.storeOriginal(plan), nil
	}

	for _, codec := range plan.Candidates {
		result, err := c.attempt(ctx, plan, codec, info)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, events.Wrap(events.ErrTransient, "compression", "encode", "cancelled", ctx.Err())
			}
			c.logger.Warn("candidate failed",
				logging.String("codec", string(codec)),
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		c.logger.Info("compression finished",
			logging.String("codec", string(codec)),
			logging.String("path", result.Path),
			logging.Int64("original_bytes", result.OriginalBytes),
			logging.Int64("final_bytes", result.FinalBytes),
			logging.Float64("reduction_pct", result.Reduction()))
		return result, nil
	}

	c.logger.Warn("all candidates failed, storing original", logging.String("path", path))
	return c.storeOriginal(plan), nil
}

// attempt encodes with one codec. An attempt that misses the target
// reduction but passes the minimum shrink escalates the effort preset once
// and keeps whichever output is smaller.
func (c *Compressor) attempt(ctx context.Context, plan Plan, codec Codec, info VideoInfo) (Result, error) {
	output, err := c.encode(ctx, plan, codec, plan.Quality, info)
	if err != nil {
		return Result{}, err
	}
	size, err := fileutil.FileSize(output)
	if err != nil {
		return Result{}, events.Wrap(events.ErrDegradable, "compression", "encode", "stat output", err)
	}

	reduction := percentReduction(plan.OriginalBytes, size)
	if reduction < float64(c.cfg.Compression.MinReduction) {
		_ = os.Remove(output)
		return Result{}, events.Wrap(events.ErrDegradable, "compression", "encode",
			fmt.Sprintf("%s shrank only %.1f%%", codec, reduction), nil)
	}

	if reduction < float64(plan.TargetReduction) && plan.Quality != QualityVeryslow {
		if retry, retryErr := c.encode(ctx, plan, codec, plan.Quality.Next(), info); retryErr == nil {
			if retrySize, statErr := fileutil.FileSize(retry); statErr == nil && retrySize < size {
				_ = os.Remove(output)
				output, size = retry, retrySize
			} else {
				_ = os.Remove(retry)
			}
		}
	}

	return Result{
		Path:          output,
		Codec:         codec,
		OriginalBytes: plan.OriginalBytes,
		FinalBytes:    size,
	}, nil
}

func (c *Compressor) encode(ctx context.Context, plan Plan, codec Codec, quality Quality, info VideoInfo) (string, error) {
	output := outputPath(plan.Input, codec, quality)
	for _, args := range encodeArgs(codec, quality, info, plan.Input, output) {
		if err := c.runner.Run(ctx, c.cfg.Compression.FFmpegBinary, args); err != nil {
			_ = os.Remove(output)
			cleanupPassLogs(plan.Input)
			return "", events.Wrap(events.ErrDegradable, "compression", "encode", string(codec), err)
		}
	}
	cleanupPassLogs(plan.Input)
	return output, nil
}

func (c *Compressor) storeOriginal(plan Plan) Result {
	return Result{
		Path:           plan.Input,
		OriginalBytes:  plan.OriginalBytes,
		FinalBytes:     plan.OriginalBytes,
		StoredOriginal: true,
	}
}

func outputPath(input string, codec Codec, quality Quality) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return fmt.Sprintf("%s_%s_%s.%s", base, codec, quality, codec.Extension())
}

// cleanupPassLogs removes the stat files two-pass encoding leaves next to
// the working directory.
func cleanupPassLogs(input string) {
	dir := filepath.Dir(input)
	for _, name := range []string{"ffmpeg2pass-0.log", "ffmpeg2pass-0.log.mbtree"} {
		_ = os.Remove(name)
		_ = os.Remove(filepath.Join(dir, name))
	}
}

func percentReduction(original, final int64) float64 {
	if original == 0 {
		return 0
	}
	return float64(original-final) / float64(original) * 100
}
