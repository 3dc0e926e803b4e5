package dataset

import (
	"math"
	"time"
)

// ChannelTrend summarizes one sensor column over a day.
type ChannelTrend struct {
	Column string    `json:"column"`
	Count  int       `json:"count"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Mean   float64   `json:"mean"`
	First  time.Time `json:"first,omitzero"`
	Last   time.Time `json:"last,omitzero"`
}

// DailyTrends is the longitudinal view of one day of sensor logs.
type DailyTrends struct {
	Date     string         `json:"date"`
	Rows     int            `json:"rows"`
	Start    time.Time      `json:"start,omitzero"`
	End      time.Time      `json:"end,omitzero"`
	Channels []ChannelTrend `json:"channels"`
}

// Trends computes per-column statistics over the numeric cells of log.
// Columns without any numeric cell are reported with a zero count.
func (log *SensorDailyLog) Trends() *DailyTrends {
	trends := &DailyTrends{
		Date:     log.Date,
		Rows:     len(log.Rows),
		Channels: make([]ChannelTrend, 0, len(log.Columns)),
	}
	for _, row := range log.Rows {
		if trends.Start.IsZero() || row.Timestamp.Before(trends.Start) {
			trends.Start = row.Timestamp
		}
		if row.Timestamp.After(trends.End) {
			trends.End = row.Timestamp
		}
	}

	for _, column := range log.Columns {
		ct := ChannelTrend{Column: column, Min: math.Inf(1), Max: math.Inf(-1)}
		var sum float64
		for _, row := range log.Rows {
			v, ok := row.Value(column)
			if !ok {
				continue
			}
			ct.Count++
			sum += v
			ct.Min = math.Min(ct.Min, v)
			ct.Max = math.Max(ct.Max, v)
			if ct.First.IsZero() {
				ct.First = row.Timestamp
			}
			ct.Last = row.Timestamp
		}
		if ct.Count == 0 {
			ct.Min, ct.Max = 0, 0
		} else {
			ct.Mean = sum / float64(ct.Count)
		}
		trends.Channels = append(trends.Channels, ct)
	}
	return trends
}

// DailyTrends loads the daily log for date and summarizes it.
func (d *Dataset) DailyTrends(date string) (*DailyTrends, error) {
	log, err := d.LoadDailySensorData(date)
	if err != nil {
		return nil, err
	}
	return log.Trends(), nil
}
