// Command genmock writes a deterministic observation CSV for local runs and
// tests. Cities are scattered on a grid around a centre point with seeded
// weather, and the safe zone each city would get is printed so assertions can
// be updated alongside the fixture.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/observations.csv \
//	  -cities 12 -lat 29.95 -lon -90.07 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

var header = []string{
	"city", "latitude", "longitude", "temperature_c", "humidity",
	"wind_speed_kph", "precipitation_mm", "risk_level", "risk_score",
}

var levels = []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the observation CSV")
	cities := flag.Int("cities", 10, "number of cities to generate")
	lat := flag.Float64("lat", 29.95, "latitude of the grid centre")
	lon := flag.Float64("lon", -90.07, "longitude of the grid centre")
	spacing := flag.Float64("spacing", 0.2, "grid spacing in degrees")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" || *cities <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -cities > 0")
	}

	obs := generate(*cities, *lat, *lon, *spacing, *seed)
	if err := writeCSV(*out, obs); err != nil {
		return fmt.Errorf("writing observations: %w", err)
	}
	log.Printf("wrote %d observations: %s", len(obs), *out)

	printStats(obs)
	return nil
}

func generate(n int, lat, lon, spacing float64, seed uint64) []domain.Observation {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	side := 1
	for side*side < n {
		side++
	}

	obs := make([]domain.Observation, 0, n)
	for i := range n {
		row, col := i/side, i%side
		level := levels[rng.IntN(len(levels))]
		obs = append(obs, domain.Observation{
			City:            fmt.Sprintf("City_%02d", i+1),
			Lat:             round(lat+(float64(row)-float64(side-1)/2)*spacing, 4),
			Lon:             round(lon+(float64(col)-float64(side-1)/2)*spacing, 4),
			TemperatureC:    round(15+rng.Float64()*25, 1),
			Humidity:        round(30+rng.Float64()*70, 0),
			WindSpeedKPH:    round(rng.Float64()*120, 1),
			PrecipitationMM: round(rng.Float64()*150, 1),
			RiskLevel:       level,
		})
	}
	return obs
}

func round(v float64, places int) float64 {
	p, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return p
}

func writeCSV(path string, obs []domain.Observation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, o := range obs {
		if err := w.Write(record(o)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func record(o domain.Observation) []string {
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		o.City, ff(o.Lat), ff(o.Lon), ff(o.TemperatureC), ff(o.Humidity),
		ff(o.WindSpeedKPH), ff(o.PrecipitationMM), o.RiskLevel.String(), "",
	}
}

type directionCount struct {
	direction string
	count     int
}

func printStats(obs []domain.Observation) {
	levelCounts := map[string]int{}
	directions := map[string]int{}
	selector := domain.NewSelector(domain.DefaultSafeZoneRadiusKM)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(obs))
	for _, o := range obs {
		levelCounts[o.RiskLevel.String()]++
		z := selector.Select(o)
		directions[z.Direction]++
		fmt.Printf("  %-8s %-6s → %-9s (%.4f, %.4f) risk=%.4f\n",
			o.City, o.RiskLevel, z.Direction, z.Lat, z.Lon, z.RiskScore)
	}
	fmt.Printf("By risk level: Low=%d, Medium=%d, High=%d\n",
		levelCounts["Low"], levelCounts["Medium"], levelCounts["High"])

	dc := make([]directionCount, 0, len(directions))
	for d, c := range directions {
		dc = append(dc, directionCount{d, c})
	}
	sort.Slice(dc, func(i, j int) bool {
		if dc[i].count != dc[j].count {
			return dc[i].count > dc[j].count
		}
		return dc[i].direction < dc[j].direction
	})
	fmt.Printf("Safe-zone directions (%d): ", len(dc))
	for _, d := range dc {
		fmt.Printf("%s=%d ", d.direction, d.count)
	}
	fmt.Println()
}
