package logging

import "strings"

// ProgressSampler decides which yt-dlp progress lines are worth logging. It
// emits on a stage change, when the percentage enters a new bucket, and when
// progress drops back (yt-dlp restarts at 0% for every playlist item).
// Everything else is counted as suppressed.
type ProgressSampler struct {
	bucketSize float64
	lastStage  string
	lastBucket int
	suppressed int
}

// NewProgressSampler uses 5% buckets when bucketSize is not positive.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. A negative
// percent means unknown. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		bucket := int(min(percent, 100) / s.bucketSize)
		if bucket > s.lastBucket || bucket < s.lastBucket-1 {
			s.lastBucket = bucket
			emit = true
		}
	}
	if !emit {
		s.suppressed++
	}
	return emit
}

// Suppressed returns how many events ShouldLog rejected.
func (s *ProgressSampler) Suppressed() int {
	if s == nil {
		return 0
	}
	return s.suppressed
}
