package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	runHeader   = []string{"run_id", "created", "asof", "name", "configuration", "trades", "dates", "samples", "depth", "precision", "observation_mode", "workers", "cube_path", "t0_ms", "update_ms", "fixing_ms", "pricing_ms", "total_ms", "errors", "status", "message"}
	errorHeader = []string{"run_id", "trade_id", "calculator", "date", "sample", "message"}
)

// CSV appends runs and errors to runs.csv and errors.csv in a directory.
type CSV struct {
	runs   *csv.Writer
	errs   *csv.Writer
	rf, ef *os.File
}

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	rf, rw, err := openAppend(filepath.Join(dir, "runs.csv"), runHeader)
	if err != nil {
		return nil, err
	}
	ef, ew, err := openAppend(filepath.Join(dir, "errors.csv"), errorHeader)
	if err != nil {
		rf.Close()
		return nil, err
	}
	return &CSV{runs: rw, errs: ew, rf: rf, ef: ef}, nil
}

// openAppend writes the header only into an empty file.
func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, nil, err
		}
	}
	return f, w, nil
}

func (j *CSV) RecordRun(r RunRecord) error {
	err := j.runs.Write([]string{
		r.RunID,
		r.Created.UTC().Format(time.RFC3339),
		r.AsOf.Format("2006-01-02"),
		r.Name,
		r.Configuration,
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Dates),
		strconv.Itoa(r.Samples),
		strconv.Itoa(r.Depth),
		r.Precision,
		r.ObservationMode,
		strconv.Itoa(r.Workers),
		r.CubePath,
		ms(r.T0),
		ms(r.Update),
		ms(r.Fixing),
		ms(r.Pricing),
		ms(r.Total),
		strconv.Itoa(r.Errors),
		r.Status,
		r.Message,
	})
	if err != nil {
		return err
	}
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSV) RecordError(e ErrorRecord) error {
	err := j.errs.Write([]string{
		e.RunID,
		e.TradeID,
		e.Calculator,
		e.Date.Format("2006-01-02"),
		strconv.Itoa(e.Sample),
		e.Message,
	})
	if err != nil {
		return err
	}
	j.errs.Flush()
	return j.errs.Error()
}

func (j *CSV) Close() error {
	j.runs.Flush()
	if err := j.runs.Error(); err != nil {
		return err
	}
	j.errs.Flush()
	if err := j.errs.Error(); err != nil {
		return err
	}

	if err := j.rf.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}
