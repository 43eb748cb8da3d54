package temporal

// TimeRange is a one-hour window of the day, EndHour wrapping past midnight.
type TimeRange struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// HeatmapCell is the record of one hour/weekday bucket.
type HeatmapCell struct {
	Hour          int     `json:"hour"`
	DayOfWeek     int     `json:"day_of_week"`
	WinRate       float64 `json:"win_rate"`
	SampleSize    int     `json:"sample_size"`
	ChiSquared    float64 `json:"chi_squared"`
	IsSignificant bool    `json:"is_significant"`
}

// Heatmap is the 24 x 7 grid for a pattern. Cells with too few samples are nil.
// Columns are indexed by ISO weekday minus one.
type Heatmap struct {
	PatternType string              `json:"pattern_type"`
	Grid        [24][7]*HeatmapCell `json:"grid"`
}

// Cell returns the cell for an hour and ISO weekday, or nil.
func (h Heatmap) Cell(hour, day int) *HeatmapCell {
	if hour < 0 || hour > 23 || day < 1 || day > 7 {
		return nil
	}
	return h.Grid[hour][day-1]
}

// Cells lists populated cells, hour-major.
func (h Heatmap) Cells() []HeatmapCell {
	cells := make([]HeatmapCell, 0)
	for hour := range h.Grid {
		for _, c := range h.Grid[hour] {
			if c != nil {
				cells = append(cells, *c)
			}
		}
	}
	return cells
}

// HourStat is an hour of day ranked by win rate.
type HourStat struct {
	Hour       int     `json:"hour"`
	WinRate    float64 `json:"win_rate"`
	SampleSize int     `json:"sample_size"`
}
