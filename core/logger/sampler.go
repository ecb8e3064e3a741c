package logger

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

type sampleRatio struct {
	keep, every uint64
}

// ratioSampler passes keep out of every events. A zero ratio passes all.
type ratioSampler struct {
	ratio atomic.Pointer[sampleRatio]
	seen  atomic.Uint64
}

func newRatioSampler(keep, every int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(keep, every)
	return s
}

// Set replaces the ratio and restarts the cycle.
func (s *ratioSampler) Set(keep, every int) {
	r := &sampleRatio{}
	if keep > 0 && every > 0 {
		r.keep, r.every = uint64(min(keep, every)), uint64(every)
	}
	s.ratio.Store(r)
	s.seen.Store(0)
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == nil || r.every == 0 {
		return true
	}
	return (s.seen.Add(1)-1)%r.every < r.keep
}

// parseRatio accepts "keep/every", "N" (one in N) or a fraction such
// as "0.25". Anything unparsable or >= 1 yields 0, 0.
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if keepStr, everyStr, ok := strings.Cut(raw, "/"); ok {
		keep, err1 := strconv.Atoi(strings.TrimSpace(keepStr))
		every, err2 := strconv.Atoi(strings.TrimSpace(everyStr))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return keep, every
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n <= 1 {
			return 0, 0
		}
		return 1, n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 && f < 1 {
		return int(math.Round(f * 100)), 100
	}
	return 0, 0
}
