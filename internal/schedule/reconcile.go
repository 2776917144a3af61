package schedule

import "sort"

// Reconcile returns the effective doses of one medication on day: the stored dose
// for each slot when there is one, otherwise a virtual dose when the plan is due.
// The result is ordered by time, then by slot order.
func (p Policy) Reconcile(plan Plan, persisted []Dose, day Date) []Dose {
	byKey := make(map[string]Dose)
	for _, d := range persisted {
		if d.Date.Equal(day) {
			d.Origin = Persisted
			byKey[d.key()] = d // last write wins
		}
	}

	due := p.DueOn(plan, day)
	out := make([]Dose, 0, len(plan.Times))
	seen := make(map[string]bool, len(plan.Times))
	for i, slot := range plan.Times {
		k := day.String() + " " + slot
		if seen[k] {
			continue
		}
		seen[k] = true

		if d, ok := byKey[k]; ok {
			out = append(out, d)
			continue
		}
		if due {
			out = append(out, Dose{
				ID:     DeriveID(day, i),
				Date:   day,
				Time:   slot,
				Origin: Virtual,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Reconcile uses the canonical policy.
func Reconcile(plan Plan, persisted []Dose, day Date) []Dose {
	return Policy{}.Reconcile(plan, persisted, day)
}

// ReconcileRange reconciles every day from..to inclusive, in date order.
func (p Policy) ReconcileRange(plan Plan, persisted []Dose, from, to Date) []Dose {
	if to.Before(from) {
		return nil
	}
	byDay := make(map[string][]Dose)
	for _, d := range persisted {
		if !d.Date.Before(from) && !d.Date.After(to) {
			byDay[d.Date.String()] = append(byDay[d.Date.String()], d)
		}
	}

	var out []Dose
	for day := from; !day.After(to); day = day.AddDays(1) {
		out = append(out, p.Reconcile(plan, byDay[day.String()], day)...)
	}
	return out
}

// Generate returns the virtual doses a plan has between from and to that have no
// stored record yet. It is what explicit materialization writes.
func (p Policy) Generate(plan Plan, persisted []Dose, from, to Date) []Dose {
	if !plan.StartDate.IsZero() && from.Before(plan.StartDate) {
		from = plan.StartDate
	}
	if !plan.EndDate.IsZero() && to.After(plan.EndDate) {
		to = plan.EndDate
	}
	var out []Dose
	for _, d := range p.ReconcileRange(plan, persisted, from, to) {
		if d.Origin == Virtual {
			out = append(out, d)
		}
	}
	return out
}
