package audio

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrPlanInvariant is returned by Plan.Verify when a plan breaks coverage or the ceiling.
var ErrPlanInvariant = errors.New("segment plan invariant violated")

// Segment is one contiguous output range of the track.
type Segment struct {
	Index   int     `json:"index" msgpack:"index"`
	StartMs float64 `json:"start_ms" msgpack:"start_ms"`
	EndMs   float64 `json:"end_ms" msgpack:"end_ms"`
}

// Duration returns the segment length in milliseconds.
func (s Segment) Duration() float64 {
	return s.EndMs - s.StartMs
}

// Plan is an ordered, contiguous list of segments covering a whole track.
type Plan []Segment

// Verify checks that p covers [0, durationMs] without gaps, overlaps or empty segments,
// and that no segment exceeds maxDurationMs.
func (p Plan) Verify(durationMs float64, maxDurationMs int) error {
	if durationMs <= 0 {
		if len(p) != 0 {
			return fmt.Errorf("%w: %d segments for an empty track", ErrPlanInvariant, len(p))
		}
		return nil
	}
	if len(p) == 0 {
		return fmt.Errorf("%w: no segments for a %.3fms track", ErrPlanInvariant, durationMs)
	}
	prev := 0.0
	for i, seg := range p {
		switch {
		case seg.StartMs != prev:
			return fmt.Errorf("%w: segment %d starts at %.3f, previous ended at %.3f", ErrPlanInvariant, i, seg.StartMs, prev)
		case seg.EndMs <= seg.StartMs:
			return fmt.Errorf("%w: segment %d is empty", ErrPlanInvariant, i)
		case seg.Duration() > float64(maxDurationMs):
			return fmt.Errorf("%w: segment %d lasts %.3fms, limit %dms", ErrPlanInvariant, i, seg.Duration(), maxDurationMs)
		}
		prev = seg.EndMs
	}
	if prev != durationMs {
		return fmt.Errorf("%w: plan ends at %.3f, track at %.3f", ErrPlanInvariant, prev, durationMs)
	}
	return nil
}

// PlanSegments cuts the track at every silence midpoint, then subdivides any piece still
// longer than maxDurationMs. An oversized piece is cut at the midpoint of the silence that
// lies wholly inside the next maxDurationMs window and ends it as late as possible; with no
// such silence it is hard-cut exactly at the limit.
func PlanSegments(durationMs float64, silences []SilenceInterval, maxDurationMs int) (Plan, error) {
	p, err := newPlanner(durationMs, silences, maxDurationMs)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return Plan{}, nil
	}

	prev := 0.0
	for _, cut := range silenceCuts(durationMs, silences) {
		p.fill(prev, cut)
		prev = cut
	}
	p.fill(prev, durationMs)

	return p.plan, nil
}

// PlanPacked skips the per-silence cuts and fills each segment up to maxDurationMs,
// ending it at the best silence in reach.
func PlanPacked(durationMs float64, silences []SilenceInterval, maxDurationMs int) (Plan, error) {
	p, err := newPlanner(durationMs, silences, maxDurationMs)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return Plan{}, nil
	}
	p.fill(0, durationMs)
	return p.plan, nil
}

type planner struct {
	limit    float64
	silences []SilenceInterval // sorted by start
	lo       int               // first silence that may still start at or after pos
	plan     Plan
}

func newPlanner(durationMs float64, silences []SilenceInterval, maxDurationMs int) (*planner, error) {
	if maxDurationMs <= 0 {
		return nil, &ConfigError{Field: "max_duration_ms", Value: maxDurationMs, Reason: "must be positive"}
	}
	if durationMs <= 0 {
		return nil, nil
	}
	sorted := slices.Clone(silences)
	slices.SortStableFunc(sorted, func(a, b SilenceInterval) int {
		return cmp.Compare(a.StartMs, b.StartMs)
	})
	return &planner{limit: float64(maxDurationMs), silences: sorted}, nil
}

// silenceCuts returns the sorted, distinct silence midpoints strictly inside the track.
func silenceCuts(durationMs float64, silences []SilenceInterval) []float64 {
	cuts := make([]float64, 0, len(silences))
	for _, s := range silences {
		if m := s.Midpoint(); m > 0 && m < durationMs {
			cuts = append(cuts, m)
		}
	}
	slices.Sort(cuts)
	return slices.Compact(cuts)
}

// fill emits [start, end] as one segment, or as several when it exceeds the limit.
func (p *planner) fill(start, end float64) {
	pos := start
	for end-pos > p.limit {
		cut, ok := p.bestCut(pos)
		if !ok {
			cut = pos + p.limit
		}
		cut = p.clamp(pos, cut)
		p.add(pos, cut)
		pos = cut
	}
	p.add(pos, end)
}

// clamp lowers cut until cut-pos fits the limit as evaluated in float64.
// pos+limit can round one ulp high when pos is fractional.
func (p *planner) clamp(pos, cut float64) float64 {
	for cut-pos > p.limit {
		cut = math.Nextafter(cut, pos)
	}
	return cut
}

// bestCut picks, among silences lying wholly within [pos, pos+limit], the one whose
// midpoint is latest. Ties go to the longer silence, then to the earlier one.
func (p *planner) bestCut(pos float64) (float64, bool) {
	for p.lo < len(p.silences) && p.silences[p.lo].StartMs < pos {
		p.lo++
	}

	windowEnd := pos + p.limit
	best := -1
	for i := p.lo; i < len(p.silences); i++ {
		s := p.silences[i]
		if s.StartMs > windowEnd {
			break
		}
		if s.EndMs > windowEnd || s.EndMs <= s.StartMs {
			continue
		}
		if best < 0 || better(s, p.silences[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return p.silences[best].Midpoint(), true
}

// better reports whether a beats b as a cut candidate. Candidates arrive in start
// order, so keeping b on a full tie keeps the earliest.
func better(a, b SilenceInterval) bool {
	if a.Midpoint() != b.Midpoint() {
		return a.Midpoint() > b.Midpoint()
	}
	return a.Duration() > b.Duration()
}

func (p *planner) add(start, end float64) {
	if end <= start {
		return
	}
	p.plan = append(p.plan, Segment{Index: len(p.plan), StartMs: start, EndMs: end})
}
