package segment

import (
	"math"
	"strings"
	"testing"
)

func TestBuildPartitionsTimeline(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		length   float64
		wantN    int
		wantLast float64
	}{
		{name: "truncated_tail", duration: 250, length: 120, wantN: 3, wantLast: 10},
		{name: "exact_multiple", duration: 240, length: 120, wantN: 2, wantLast: 120},
		{name: "shorter_than_one_segment", duration: 45.5, length: 120, wantN: 1, wantLast: 45.5},
		{name: "fractional", duration: 600.25, length: 60, wantN: 11, wantLast: 0.25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segs := Build(tc.duration, tc.length)
			if len(segs) != tc.wantN {
				t.Fatalf("len=%d, want %d", len(segs), tc.wantN)
			}
			if segs[0].Start != 0 {
				t.Fatalf("first start=%v, want 0", segs[0].Start)
			}
			for i, s := range segs {
				if s.Index != i {
					t.Fatalf("segs[%d].Index=%d", i, s.Index)
				}
				if i > 0 && s.Start != segs[i-1].End {
					t.Fatalf("gap/overlap between %d and %d: %v != %v", i-1, i, segs[i-1].End, s.Start)
				}
				if i < len(segs)-1 && s.Len() != tc.length {
					t.Fatalf("segs[%d].Len()=%v, want %v", i, s.Len(), tc.length)
				}
			}
			last := segs[len(segs)-1]
			if last.End != tc.duration {
				t.Fatalf("last end=%v, want %v", last.End, tc.duration)
			}
			if math.Abs(last.Len()-tc.wantLast) > 1e-9 {
				t.Fatalf("last len=%v, want %v", last.Len(), tc.wantLast)
			}
		})
	}
}

func TestBuildScenarioA(t *testing.T) {
	segs := Build(250, 120)
	want := [][2]float64{{0, 120}, {120, 240}, {240, 250}}
	for i, w := range want {
		if segs[i].Start != w[0] || segs[i].End != w[1] {
			t.Fatalf("segs[%d]=[%v,%v), want [%v,%v)", i, segs[i].Start, segs[i].End, w[0], w[1])
		}
	}
}

func TestBuildRejectsUnknownDuration(t *testing.T) {
	for _, d := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if segs := Build(d, 120); segs != nil {
			t.Fatalf("Build(%v) = %d segments, want none", d, len(segs))
		}
	}
	if segs := Build(100, 0); segs != nil {
		t.Fatalf("Build with zero length should be empty")
	}
}

func TestBuildRejectsOversizedTimeline(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		length   float64
	}{
		{name: "huge_duration", duration: 1e15, length: 120},
		{name: "just_over_max", duration: MaxDuration + 1, length: 120},
		{name: "too_many_segments", duration: 3600, length: 0.01},
		{name: "tiny_length", duration: 100, length: 1e-300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if segs := Build(tc.duration, tc.length); segs != nil {
				t.Fatalf("Build(%v, %v) = %d segments, want none", tc.duration, tc.length, len(segs))
			}
		})
	}
	segs := Build(MaxDuration, 120)
	if len(segs) != 720 || segs[len(segs)-1].End != MaxDuration {
		t.Fatalf("Build(MaxDuration) = %d segments", len(segs))
	}
}

func TestIndexAt(t *testing.T) {
	segs := Build(250, 120)
	cases := map[float64]int{0: 0, 119.9: 0, 120: 1, 245: 2, 400: 2, -1: 0}
	for in, want := range cases {
		if got := IndexAt(segs, in); got != want {
			t.Fatalf("IndexAt(%v)=%d, want %d", in, got, want)
		}
	}
	if got := IndexAt(nil, 5); got != -1 {
		t.Fatalf("IndexAt(nil)=%d, want -1", got)
	}
}

func TestSliceTranscript(t *testing.T) {
	segs := Build(250, 120)
	segs[2].Transcript = "kept"
	words := []TimedWord{
		{Word: "closures", Start: 130, End: 131},
		{Word: "hello", Start: 1, End: 2},
		{Word: "world", Start: 3, End: 4},
		{Word: " ", Start: 5, End: 6},
	}
	SliceTranscript(words, segs)
	if segs[0].Transcript != "hello world" {
		t.Fatalf("segs[0]=%q", segs[0].Transcript)
	}
	if segs[1].Transcript != "closures" {
		t.Fatalf("segs[1]=%q", segs[1].Transcript)
	}
	if segs[2].Transcript != "kept" {
		t.Fatalf("segs[2]=%q, want untouched", segs[2].Transcript)
	}
}

func TestSynthesizeTranscripts(t *testing.T) {
	segs := Build(250, 120)
	SynthesizeTranscripts("Intro to React Hooks", segs)
	if !strings.Contains(segs[0].Transcript, "React") || !strings.Contains(segs[0].Transcript, "33%") {
		t.Fatalf("segs[0]=%q", segs[0].Transcript)
	}
	if !strings.Contains(segs[2].Transcript, "100%") {
		t.Fatalf("segs[2]=%q", segs[2].Transcript)
	}

	other := Build(60, 120)
	SynthesizeTranscripts("Pottery basics", other)
	if !strings.HasPrefix(other[0].Transcript, "Welcome to Pottery basics!") {
		t.Fatalf("default transcript=%q", other[0].Transcript)
	}

	// "js" must match as a word, not inside "jsonl"
	noisy := Build(60, 120)
	SynthesizeTranscripts("Reading jsonl files", noisy)
	if strings.Contains(noisy[0].Transcript, "JavaScript") {
		t.Fatalf("unexpected javascript outline: %q", noisy[0].Transcript)
	}
}

func TestSynthesizeClampsToOutlineLength(t *testing.T) {
	segs := Build(1200, 120)
	SynthesizeTranscripts("javascript deep dive", segs)
	if segs[9].Transcript == "" || !strings.Contains(segs[9].Transcript, "100%") {
		t.Fatalf("segs[9]=%q", segs[9].Transcript)
	}
}
