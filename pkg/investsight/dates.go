package investsight

import "time"

const isoDateFormat = "2006-01-02"

// todayISO returns the current UTC date as YYYY-MM-DD. All ledger dates and
// valuation days use this format; lexicographic order equals chronological
// order, which the replay and price lookups rely on.
func todayISO() string {
	return time.Now().UTC().Format(isoDateFormat)
}

func parseISODate(value string) (time.Time, error) {
	return time.Parse(isoDateFormat, value)
}

func isValidISODate(value string) bool {
	_, err := parseISODate(value)
	return err == nil
}

// nextDay returns the ISO date one calendar day after the given ISO date.
func nextDay(date string) string {
	t, err := parseISODate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format(isoDateFormat)
}

// prevDay returns the ISO date one calendar day before the given ISO date.
func prevDay(date string) string {
	t, err := parseISODate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, -1).Format(isoDateFormat)
}

// monthOf truncates an ISO date to its YYYY-MM month key.
func monthOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

// daysBetween returns the number of calendar days from start to end,
// never less than the given floor.
func daysBetween(start, end string, floor int) int {
	s, err1 := parseISODate(start)
	e, err2 := parseISODate(end)
	if err1 != nil || err2 != nil {
		return floor
	}
	days := int(e.Sub(s).Hours() / 24)
	if days < floor {
		return floor
	}
	return days
}
