package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
)

// Observation CSV columns. Only city is required; column order is free.
const (
	colCity          = "city"
	colLatitude      = "latitude"
	colLongitude     = "longitude"
	colTemperature   = "temperature_c"
	colHumidity      = "humidity"
	colWindSpeed     = "wind_speed_kph"
	colPrecipitation = "precipitation_mm"
	colRiskLevel     = "risk_level"
	colRiskScore     = "risk_score"
)

// ObservationReader loads the clustered observation CSV.
type ObservationReader struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewObservationReader creates a reader for the CSV at path.
func NewObservationReader(path string, logger *slog.Logger, metrics *observability.Metrics) *ObservationReader {
	return &ObservationReader{path: path, logger: logger, metrics: metrics}
}

// LoadObservations reads every row. Rows with unparseable numbers are logged
// and skipped; a missing file or header fails the whole load.
func (r *ObservationReader) LoadObservations(_ context.Context) ([]domain.Observation, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInputMissing, err)
	}
	defer f.Close()

	return r.parse(f)
}

func (r *ObservationReader) parse(in io.Reader) ([]domain.Observation, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInputMissing, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := cols[colCity]; !ok {
		return nil, fmt.Errorf("%w: %s has no %q column", domain.ErrInputMissing, r.path, colCity)
	}

	var out []domain.Observation
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		o, err := parseRow(cols, record)
		if err != nil {
			r.logger.Warn("malformed observation row skipped", "line", line, "error", err)
			r.metrics.InputsDropped.WithLabelValues("malformed").Inc()
			continue
		}
		if o.City == "" {
			r.logger.Warn("observation row without city skipped", "line", line)
			r.metrics.InputsDropped.WithLabelValues("malformed").Inc()
			continue
		}
		out = append(out, o)
	}
}

func parseRow(cols map[string]int, record []string) (domain.Observation, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var (
		o   domain.Observation
		err error
	)
	o.City = field(colCity)
	o.NoPosition = field(colLatitude) == "" || field(colLongitude) == ""

	floats := []struct {
		col  string
		dest *float64
	}{
		{colLatitude, &o.Lat},
		{colLongitude, &o.Lon},
		{colTemperature, &o.TemperatureC},
		{colHumidity, &o.Humidity},
		{colWindSpeed, &o.WindSpeedKPH},
		{colPrecipitation, &o.PrecipitationMM},
	}
	for _, f := range floats {
		if *f.dest, err = parseOptionalFloat(field(f.col)); err != nil {
			return o, fmt.Errorf("%s: %w", f.col, err)
		}
	}
	if o.WindSpeedKPH < 0 || o.PrecipitationMM < 0 {
		return o, errors.New("wind speed and precipitation must be non-negative")
	}

	o.RiskLevel = domain.ParseRiskLevel(field(colRiskLevel))
	if s := field(colRiskScore); s != "" {
		if o.RiskScore, err = parseOptionalFloat(s); err != nil {
			return o, fmt.Errorf("%s: %w", colRiskScore, err)
		}
		o.HasRiskScore = true
	}
	return o, nil
}

var errNonFinite = errors.New("value is not a finite number")

// parseOptionalFloat parses s, treating blank as zero. strconv accepts "NaN"
// and "Inf", which are rejected here.
func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q: %w", s, errNonFinite)
	}
	return v, nil
}
