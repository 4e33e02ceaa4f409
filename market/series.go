package market

// Series is the rolling, append-only bar history for one symbol/timeframe.
//
// Bars must arrive in strictly increasing time order. Late or repeated bars
// are dropped and counted; missing buckets are counted as gaps but never
// synthesized. When Limit > 0 the oldest bars are discarded so that at most
// Limit bars are retained.
type Series struct {
	Timeframe int64 // seconds per bar, 0 if unknown (gap detection disabled)
	Limit     int

	bars       []Bar
	duplicates int
	gaps       int
	missing    int
}

// NewSeries seeds a series with history. Seed bars go through Append so the
// same ordering rules apply.
func NewSeries(timeframe int64, limit int, seed []Bar) *Series {
	s := &Series{Timeframe: timeframe, Limit: limit}
	for _, b := range seed {
		s.Append(b)
	}
	return s
}

// Append adds b and reports whether it was accepted.
func (s *Series) Append(b Bar) bool {
	if n := len(s.bars); n > 0 {
		last := s.bars[n-1].Time
		if b.Time <= last {
			s.duplicates++
			return false
		}
		if s.Timeframe > 0 {
			if skipped := (b.Time-last)/s.Timeframe - 1; skipped > 0 {
				s.gaps++
				s.missing += int(skipped)
			}
		}
	}

	s.bars = append(s.bars, b)
	if s.Limit > 0 && len(s.bars) > s.Limit {
		// copy down instead of reslicing so the backing array does not grow forever
		drop := len(s.bars) - s.Limit
		n := copy(s.bars, s.bars[drop:])
		s.bars = s.bars[:n]
	}
	return true
}

// Bars returns the retained history. Callers must not modify it.
func (s *Series) Bars() []Bar { return s.bars }

func (s *Series) Len() int { return len(s.bars) }

// Last returns the newest bar.
func (s *Series) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// SeriesStats summarizes what Append has seen.
type SeriesStats struct {
	Bars        int
	Duplicates  int
	Gaps        int
	MissingBars int
}

func (s *Series) Stats() SeriesStats {
	return SeriesStats{
		Bars:        len(s.bars),
		Duplicates:  s.duplicates,
		Gaps:        s.gaps,
		MissingBars: s.missing,
	}
}
