package history

import (
	"sort"
	"time"
)

// Day aggregates one calendar day.
type Day struct {
	Date      time.Time     `json:"date"`
	Sessions  int           `json:"sessions"`
	Completed int           `json:"completed"`
	Time      time.Duration `json:"time"`
}

// Summary aggregates a set of records.
type Summary struct {
	Sessions  int           `json:"sessions"`
	Completed int           `json:"completed"`
	Stopped   int           `json:"stopped"`
	Time      time.Duration `json:"time"`
	// Streak counts consecutive days with a completed session, ending
	// today, or yesterday if nothing has been completed yet today.
	Streak int   `json:"streak"`
	Days   []Day `json:"days"`
}

// Summarize groups records by local day (newest first) relative to now.
func Summarize(recs []Record, now time.Time) Summary {
	loc := now.Location()
	var s Summary
	byDay := map[string]*Day{}
	for _, r := range recs {
		s.Sessions++
		s.Time += r.Elapsed
		switch r.Outcome {
		case Completed:
			s.Completed++
		case Stopped:
			s.Stopped++
		}

		local := r.Start.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		key := day.Format("2006-01-02")
		d, ok := byDay[key]
		if !ok {
			d = &Day{Date: day}
			byDay[key] = d
		}
		d.Sessions++
		d.Time += r.Elapsed
		if r.Outcome == Completed {
			d.Completed++
		}
	}

	for _, d := range byDay {
		s.Days = append(s.Days, *d)
	}
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i].Date.After(s.Days[j].Date) })

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	done := func(t time.Time) bool {
		d, ok := byDay[t.Format("2006-01-02")]
		return ok && d.Completed > 0
	}
	day := today
	if !done(day) {
		day = day.AddDate(0, 0, -1)
	}
	for done(day) {
		s.Streak++
		day = day.AddDate(0, 0, -1)
	}
	return s
}
