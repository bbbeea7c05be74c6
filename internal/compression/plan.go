package compression

import (
	"strings"

	"vigil/internal/config"
	"vigil/internal/events"
	"vigil/internal/fileutil"
)

// Codec identifies an encoder candidate.
type Codec string

const (
	CodecH265 Codec = "h265"
	CodecAV1  Codec = "av1"
	CodecVP9  Codec = "vp9"
	CodecX264 Codec = "x264"
)

// Extension returns the container extension the codec encodes into.
func (c Codec) Extension() string {
	switch c {
	case CodecVP9:
		return "webm"
	case CodecAV1:
		return "mkv"
	default:
		return "mp4"
	}
}

// Quality is an encoder effort preset. Higher effort trades encode time for
// smaller output.
type Quality string

const (
	QualityFast     Quality = "fast"
	QualityMedium   Quality = "medium"
	QualitySlow     Quality = "slow"
	QualityVeryslow Quality = "veryslow"
)

// Next returns the next higher effort preset, or the same preset when
// already at maximum.
func (q Quality) Next() Quality {
	switch q {
	case QualityFast:
		return QualityMedium
	case QualityMedium:
		return QualitySlow
	case QualitySlow:
		return QualityVeryslow
	default:
		return QualityVeryslow
	}
}

// ParseQuality maps a config string onto a Quality preset.
func ParseQuality(value string) (Quality, error) {
	switch Quality(strings.ToLower(strings.TrimSpace(value))) {
	case QualityFast:
		return QualityFast, nil
	case QualityMedium, "":
		return QualityMedium, nil
	case QualitySlow:
		return QualitySlow, nil
	case QualityVeryslow:
		return QualityVeryslow, nil
	default:
		return "", events.Wrap(events.ErrConfiguration, "compression", "parse quality", "unknown preset "+value, nil)
	}
}

// Plan is the ordered list of codec candidates for one source file. The
// compressor tries candidates in order and falls back on failure.
type Plan struct {
	Input           string
	OriginalBytes   int64
	TargetReduction int
	Quality         Quality
	Candidates      []Codec
}

// Selector picks codec candidates by source size. Large files favor encode
// efficiency, small files favor speed and compatibility.
type Selector struct {
	largeBytes  int64
	mediumBytes int64
	quality     Quality
}

// NewSelector builds a selector from the compression config.
func NewSelector(cfg *config.Config) (*Selector, error) {
	quality, err := ParseQuality(cfg.Compression.Quality)
	if err != nil {
		return nil, err
	}
	return &Selector{
		largeBytes:  int64(cfg.Compression.LargeFileMiB) * 1024 * 1024,
		mediumBytes: int64(cfg.Compression.MediumFileMiB) * 1024 * 1024,
		quality:     quality,
	}, nil
}

// Plan inspects the source size and returns the ordered candidate list.
// The same file size and target always produce the same list.
func (s *Selector) Plan(path string, targetReduction int) (Plan, error) {
	size, err := fileutil.FileSize(path)
	if err != nil {
		return Plan{}, events.Wrap(events.ErrLocalFatal, "compression", "plan", "stat source", err)
	}

	var candidates []Codec
	switch {
	case size > s.largeBytes:
		candidates = []Codec{CodecH265, CodecVP9, CodecX264}
	case size > s.mediumBytes:
		candidates = []Codec{CodecVP9, CodecX264, CodecH265}
	default:
		candidates = []Codec{CodecX264, CodecVP9, CodecH265}
	}

	return Plan{
		Input:           path,
		OriginalBytes:   size,
		TargetReduction: targetReduction,
		Quality:         s.quality,
		Candidates:      candidates,
	}, nil
}
