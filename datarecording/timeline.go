package datarecording

import (
	"github.com/rs/xid"

	"github.com/sarchlab/threadviz/timeline"
)

// Table names used by RecordTimeline.
const (
	IntervalTable = "interval"
	LaneTable     = "lane"
)

// IntervalEntry is one row of the interval table.
type IntervalEntry struct {
	ID       string  `db:"ID"`
	Lane     int     `db:"Lane"`
	Phase    string  `db:"Phase"`
	Start    float64 `db:"StartTime"`
	End      float64 `db:"EndTime"`
	Duration float64 `db:"Duration"`
	Actor    int     `db:"Actor"`
}

// LaneEntry is one row of the lane table.
type LaneEntry struct {
	Index int    `db:"LaneIndex"`
	Label string `db:"Label"`
}

// RecordTimeline stores the lanes and the intervals of a timeline and flushes
// the recorder.
func RecordTimeline(
	r DataRecorder,
	lanes *timeline.LaneTable,
	intervals []timeline.Interval,
) error {
	err := r.CreateTable(LaneTable, LaneEntry{})
	if err != nil {
		return err
	}

	err = r.CreateTable(IntervalTable, IntervalEntry{})
	if err != nil {
		return err
	}

	for i, label := range lanes.Labels() {
		err = r.InsertData(LaneTable, LaneEntry{Index: i, Label: label})
		if err != nil {
			return err
		}
	}

	for _, iv := range intervals {
		err = r.InsertData(IntervalTable, IntervalEntry{
			ID:       xid.New().String(),
			Lane:     iv.Lane,
			Phase:    string(iv.Phase),
			Start:    iv.Start,
			End:      iv.End,
			Duration: iv.Duration(),
			Actor:    iv.Actor,
		})
		if err != nil {
			return err
		}
	}

	return r.Flush()
}
