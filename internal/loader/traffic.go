package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// trafficHeader is the column order of traffic CSV files.
var trafficHeader = []string{"edge_id", "timestamp", "density", "speed", "count"}

// ReadTrafficCSV reads traffic observations, one per row, in the column
// order edge_id,timestamp,density,speed,count. A header row is skipped if
// its first field is not numeric. Fields are trimmed of whitespace.
func ReadTrafficCSV(r io.Reader) ([]core.TrafficRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(trafficHeader)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var records []core.TrafficRecord
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("traffic csv: %w", err)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if row == 1 {
			if _, err := strconv.Atoi(fields[0]); err != nil {
				continue
			}
		}
		rec, err := parseTrafficRow(fields)
		if err != nil {
			return nil, fmt.Errorf("traffic csv row %d: %w", row, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseTrafficRow(f []string) (core.TrafficRecord, error) {
	var rec core.TrafficRecord
	edge, err := parseInt(f[0])
	if err != nil {
		return rec, err
	}
	ts, err := parseInt(f[1])
	if err != nil {
		return rec, err
	}
	density, err := parseFloat(f[2])
	if err != nil {
		return rec, err
	}
	speed, err := parseFloat(f[3])
	if err != nil {
		return rec, err
	}
	count, err := parseInt(f[4])
	if err != nil {
		return rec, err
	}
	return core.TrafficRecord{
		EdgeID:    core.EdgeID(edge),
		Timestamp: ts,
		Density:   density,
		Speed:     speed,
		Count:     count,
	}, nil
}

// WriteTrafficCSV writes records with a header row.
func WriteTrafficCSV(w io.Writer, records []core.TrafficRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trafficHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(int(r.EdgeID)),
			strconv.Itoa(r.Timestamp),
			strconv.FormatFloat(r.Density, 'f', -1, 64),
			strconv.FormatFloat(r.Speed, 'f', -1, 64),
			strconv.Itoa(r.Count),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadTrafficFile reads traffic observations from disk.
func LoadTrafficFile(path string) ([]core.TrafficRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrafficCSV(f)
}
