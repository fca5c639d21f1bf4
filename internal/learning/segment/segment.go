// Package segment partitions a video timeline into fixed-length, quiz-gated
// slices and attaches a transcript to each slice.
package segment

import (
	"math"

	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
)

// DefaultLength is the segment length used when none is configured.
const DefaultLength = 120.0

const (
	// MaxDuration is the longest timeline Build will partition, in seconds.
	MaxDuration = 24 * 60 * 60.0
	// MaxSegments caps the partition size for very short segment lengths.
	MaxSegments = 10000
)

// Segment is one slice [Start, End) of a video, in seconds.
type Segment struct {
	Index      int            `json:"index"`
	Start      float64        `json:"start"`
	End        float64        `json:"end"`
	Transcript string         `json:"transcript,omitempty"`
	Quiz       *quiz.Question `json:"-"`
	Completed  bool           `json:"completed"`
}

func (s Segment) Len() float64 { return s.End - s.Start }

func (s Segment) Contains(t float64) bool { return t >= s.Start && t < s.End }

// Build partitions [0, duration) into ceil(duration/length) contiguous
// segments. The last one is truncated to duration. An unknown, non-positive
// or oversized duration yields no segments, as does any partition that would
// exceed MaxSegments.
func Build(duration, length float64) []Segment {
	if !validSeconds(duration) || duration <= 0 || duration > MaxDuration {
		return nil
	}
	if !validSeconds(length) || length <= 0 {
		return nil
	}
	count := math.Ceil(duration / length)
	if count > MaxSegments {
		return nil
	}
	n := int(count)
	out := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * length
		end := math.Min(float64(i+1)*length, duration)
		if end <= start {
			break
		}
		out = append(out, Segment{Index: i, Start: start, End: end})
	}
	return out
}

// IndexAt returns the index of the segment containing t; times past the end
// map to the last segment. -1 when segs is empty.
func IndexAt(segs []Segment, t float64) int {
	if len(segs) == 0 {
		return -1
	}
	if t < 0 {
		return 0
	}
	for _, s := range segs {
		if s.Contains(t) {
			return s.Index
		}
	}
	return len(segs) - 1
}

func validSeconds(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
