package schedule

import "math"

// Regimen pairs a plan with the doses stored for it.
type Regimen struct {
	Plan  Plan
	Doses []Dose
}

// Summary is an adherence aggregate over a date window. It is computed on demand
// and never stored.
type Summary struct {
	Expected   int     `json:"totalExpected"`
	Taken      int     `json:"totalTaken"`
	Missed     int     `json:"totalMissed"`
	Pending    int     `json:"totalPending"`
	Percentage float64 `json:"compliancePercentage"`
	Window     Window  `json:"dateRange"`
}

// Classify resolves a dose against today. An unresolved dose whose day has passed,
// or whose medication has ended, counts as missed.
func Classify(d Dose, plan Plan, today Date) Status {
	if d.Taken != nil {
		if *d.Taken {
			return StatusTaken
		}
		return StatusMissed
	}
	if d.Date.Before(today) || plan.Ended(today) {
		return StatusMissed
	}
	return StatusPending
}

func (s *Summary) add(st Status) {
	s.Expected++
	switch st {
	case StatusTaken:
		s.Taken++
	case StatusMissed:
		s.Missed++
	default:
		s.Pending++
	}
}

func (s *Summary) finish() {
	if s.Expected == 0 {
		s.Percentage = 0
		return
	}
	s.Percentage = math.Round(float64(s.Taken)/float64(s.Expected)*100*100) / 100
}

// Compute counts only stored doses. Days nobody has touched yet contribute
// nothing; use ComputeReconciled to count the schedule itself.
func Compute(regimens []Regimen, window Window, today Date) Summary {
	w := window.Resolve(today)
	s := Summary{Window: w}
	for _, r := range regimens {
		for _, d := range r.Doses {
			if w.Contains(d.Date) {
				s.add(Classify(d, r.Plan, today))
			}
		}
	}
	s.finish()
	return s
}

// ComputeReconciled counts the reconciled schedule: stored doses plus the virtual
// doses the plan implies for the window.
func (p Policy) ComputeReconciled(regimens []Regimen, window Window, today Date) Summary {
	w := window.Resolve(today)
	s := Summary{Window: w}
	for _, r := range regimens {
		for _, d := range p.ReconcileRange(r.Plan, r.Doses, w.Start, w.End) {
			s.add(Classify(d, r.Plan, today))
		}
	}
	s.finish()
	return s
}
