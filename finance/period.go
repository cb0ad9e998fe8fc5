package finance

// =============================================================================
// PERIOD - Date range used by trend reports
// =============================================================================

// Period is the closed range [Start, End].
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Date) Period {
	return Period{Start: StartOfMonth(d.Year(), d.Month()), End: EndOfMonth(d.Year(), d.Month())}
}

// PreviousMonth returns the calendar month before this period's start.
func (p Period) PreviousMonth() Period {
	return MonthOf(p.Start.AddDays(-1))
}

// TrailingMonths returns the n calendar months ending with the month of asOf,
// oldest first.
func TrailingMonths(asOf Date, n int) []Period {
	if n <= 0 {
		return nil
	}
	periods := make([]Period, n)
	current := MonthOf(asOf)
	for i := n - 1; i >= 0; i-- {
		periods[i] = current
		current = current.PreviousMonth()
	}
	return periods
}
