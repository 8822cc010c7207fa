package spec

// Frequency is the custom type to define how often a subscribed product repeats within a plan cycle
type Frequency string

// Defining the valid delivery frequencies
const (
	FrequencyDaily       Frequency = "daily"
	FrequencyEvery2Days  Frequency = "every_2_days"
	FrequencyEvery3Days  Frequency = "every_3_days"
	FrequencyWeekly      Frequency = "weekly"
	FrequencyEvery15Days Frequency = "every_15_days"
	FrequencyMonthly     Frequency = "monthly"
)

// occurrences maps each Frequency to how many deliveries happen in one month
var occurrences = map[Frequency]int64{
	FrequencyDaily:       30,
	FrequencyEvery2Days:  15,
	FrequencyEvery3Days:  10,
	FrequencyWeekly:      4,
	FrequencyEvery15Days: 2,
	FrequencyMonthly:     1,
}

var shortLabels = map[Frequency]string{
	FrequencyDaily:       "Daily",
	FrequencyEvery2Days:  "Every 2nd Day",
	FrequencyEvery3Days:  "Every 3rd Day",
	FrequencyWeekly:      "Weekly",
	FrequencyEvery15Days: "Every 15 Days",
	FrequencyMonthly:     "Monthly",
}

// Valid returns true if f is one of the defined frequencies
func (f Frequency) Valid() bool {
	_, ok := occurrences[f]
	return ok
}

// OccurrencesPerMonth returns how many deliveries the frequency yields in one month.
// Undefined frequencies yield 0
func (f Frequency) OccurrencesPerMonth() int64 {
	return occurrences[f]
}

// ShortLabel returns the display label of the frequency
func (f Frequency) ShortLabel() string {
	return shortLabels[f]
}
