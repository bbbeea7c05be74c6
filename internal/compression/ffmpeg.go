package compression

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"vigil/internal/events"
)

// Runner executes an external encoder invocation.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) error
}

// Prober reports stream properties of a local video file.
type Prober interface {
	Probe(ctx context.Context, path string) (VideoInfo, error)
}

// VideoInfo carries the stream properties the arg builder needs.
type VideoInfo struct {
	Width  int
	Height int
}

type execRunner struct{}

// NewRunner returns a Runner that shells out to the named binary.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 400 {
			detail = detail[len(detail)-400:]
		}
		if detail != "" {
			return fmt.Errorf("%s failed: %w: %s", binary, err, detail)
		}
		return fmt.Errorf("%s failed: %w", binary, err)
	}
	return nil
}

type execProber struct {
	binary string
}

// NewProber returns a Prober backed by the given ffprobe binary.
func NewProber(binary string) Prober {
	return execProber{binary: binary}
}

func (p execProber) Probe(ctx context.Context, path string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path)
	out, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, events.Wrap(events.ErrDegradable, "compression", "probe", "run ffprobe", err)
	}

	var payload struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return VideoInfo{}, events.Wrap(events.ErrDegradable, "compression", "probe", "parse ffprobe output", err)
	}
	for _, stream := range payload.Streams {
		if stream.CodecType == "video" {
			return VideoInfo{Width: stream.Width, Height: stream.Height}, nil
		}
	}
	return VideoInfo{}, events.Wrap(events.ErrDegradable, "compression", "probe", "no video stream in "+path, nil)
}

// encodeArgs builds the ffmpeg argument lists for one candidate attempt.
// VP9 uses two-pass encoding, so the result may hold two invocations.
func encodeArgs(codec Codec, quality Quality, info VideoInfo, input, output string) [][]string {
	switch codec {
	case CodecH265:
		return [][]string{{
			"-i", input,
			"-c:v", "libx265",
			"-preset", string(quality),
			"-crf", h265CRF(info.Width, quality),
			"-c:a", "aac",
			"-b:a", "128k",
			"-tag:v", "hvc1",
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
			"-y", output,
		}}
	case CodecAV1:
		crf, cpuUsed := av1Settings(quality)
		return [][]string{{
			"-i", input,
			"-c:v", "libaom-av1",
			"-crf", crf,
			"-cpu-used", cpuUsed,
			"-row-mt", "1",
			"-tiles", "2x2",
			"-c:a", "libopus",
			"-b:a", "128k",
			"-y", output,
		}}
	case CodecVP9:
		crf, cpuUsed := vp9Settings(quality)
		return [][]string{
			{
				"-i", input,
				"-c:v", "libvpx-vp9",
				"-crf", crf,
				"-cpu-used", cpuUsed,
				"-row-mt", "1",
				"-pass", "1",
				"-an",
				"-f", "null",
				os.DevNull,
			},
			{
				"-i", input,
				"-c:v", "libvpx-vp9",
				"-crf", crf,
				"-cpu-used", cpuUsed,
				"-row-mt", "1",
				"-pass", "2",
				"-c:a", "libopus",
				"-b:a", "128k",
				"-y", output,
			},
		}
	default:
		crf, preset := x264Settings(quality)
		return [][]string{{
			"-i", input,
			"-c:v", "libx264",
			"-preset", preset,
			"-crf", crf,
			"-profile:v", "high",
			"-level", "4.1",
			"-x264-params", "ref=4:bframes=4:direct=auto:aq-mode=1:aq-strength=0.8:deblock=1,1",
			"-c:a", "aac",
			"-b:a", "128k",
			"-movflags", "+faststart",
			"-pix_fmt", "yuv420p",
			"-y", output,
		}}
	}
}

// h265CRF tiers the constant-rate factor by source resolution, trading more
// quality headroom to high-resolution footage.
func h265CRF(width int, quality Quality) string {
	switch {
	case width >= 1920:
		return pick(quality, "23", "21", "19")
	case width >= 1280:
		return pick(quality, "25", "23", "21")
	default:
		return pick(quality, "28", "26", "24")
	}
}

func av1Settings(quality Quality) (crf, cpuUsed string) {
	switch quality {
	case QualityFast:
		return "35", "8"
	case QualitySlow:
		return "25", "2"
	case QualityVeryslow:
		return "20", "0"
	default:
		return "30", "4"
	}
}

func vp9Settings(quality Quality) (crf, cpuUsed string) {
	switch quality {
	case QualityFast:
		return "35", "5"
	case QualitySlow:
		return "25", "0"
	case QualityVeryslow:
		return "20", "0"
	default:
		return "30", "2"
	}
}

func x264Settings(quality Quality) (crf, preset string) {
	switch quality {
	case QualityFast:
		return "23", "fast"
	case QualitySlow:
		return "19", "slow"
	case QualityVeryslow:
		return "17", "veryslow"
	default:
		return "21", "medium"
	}
}

func pick(quality Quality, fast, medium, slower string) string {
	switch quality {
	case QualityFast:
		return fast
	case QualityMedium:
		return medium
	default:
		return slower
	}
}
