package logging

// ProgressSampler thins (completed, total) progress callbacks down to one
// log line per percentage bucket, restarting whenever the phase changes.
type ProgressSampler struct {
	bucket     int
	phase      string
	lastBucket int
}

// NewProgressSampler emits every bucket percent; values outside 1..100
// fall back to 10.
func NewProgressSampler(bucket int) *ProgressSampler {
	if bucket <= 0 || bucket > 100 {
		bucket = 10
	}
	return &ProgressSampler{bucket: bucket, lastBucket: -1}
}

// ShouldLog reports whether this update crosses into a new bucket. Updates
// with an unknown total only log on a phase change.
func (s *ProgressSampler) ShouldLog(phase string, completed, total int) bool {
	if s == nil {
		return true
	}
	emit := false
	if phase != s.phase {
		s.phase = phase
		s.lastBucket = -1
		emit = true
	}
	if total <= 0 {
		return emit
	}
	completed = min(max(completed, 0), total)
	b := completed * 100 / total / s.bucket
	if b > s.lastBucket {
		s.lastBucket = b
		emit = true
	}
	return emit
}

// Reset forgets the current phase and bucket.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.phase = ""
		s.lastBucket = -1
	}
}
