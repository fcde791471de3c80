// Package griddata loads the static grid topology: transmission lines, the
// conductor library, buses, and nominal line flows. Data is read once at
// startup and treated as immutable; Reload swaps the whole set atomically.
package griddata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/linelink/linelink-go/internal/models"
)

// Resistance reference temperatures of the conductor library. Manufacturer
// sheets quote resistance at 25°C and 50°C in ohms/mile.
const (
	refTempLoC = 25
	refTempHiC = 50
	ftPerMile  = 5280
)

// Surface properties assumed for weathered ACSR.
const (
	defaultEmissivity   = 0.8
	defaultAbsorptivity = 0.8
)

// Store holds the loaded grid data set.
type Store struct {
	mu         sync.RWMutex
	dataDir    string
	lines      []models.LineSpec
	conductors map[string]models.ConductorSpec
	buses      map[string]models.Bus
}

// Load reads the grid data set from dataDir. Expected files: lines.csv,
// conductor_library.csv, buses.csv, line_flows_nominal.csv.
func Load(dataDir string) (*Store, error) {
	s := &Store{dataDir: dataDir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads every file and replaces the in-memory set in one step.
// Callers holding previously returned slices keep a consistent snapshot.
func (s *Store) Reload() error {
	conductors, err := loadConductors(filepath.Join(s.dataDir, "conductor_library.csv"))
	if err != nil {
		return fmt.Errorf("failed to load conductor library: %w", err)
	}

	buses, err := loadBuses(filepath.Join(s.dataDir, "buses.csv"))
	if err != nil {
		return fmt.Errorf("failed to load buses: %w", err)
	}

	flows, err := loadFlows(filepath.Join(s.dataDir, "line_flows_nominal.csv"))
	if err != nil {
		return fmt.Errorf("failed to load nominal flows: %w", err)
	}

	lines, err := loadLines(filepath.Join(s.dataDir, "lines.csv"), buses, flows)
	if err != nil {
		return fmt.Errorf("failed to load lines: %w", err)
	}

	for i := range lines {
		if _, ok := conductors[lines[i].Conductor]; !ok {
			logrus.Warnf("Line %s references unknown conductor %q", lines[i].Name, lines[i].Conductor)
		}
	}

	s.mu.Lock()
	s.lines = lines
	s.conductors = conductors
	s.buses = buses
	s.mu.Unlock()

	logrus.Infof("Loaded %d lines, %d conductor types, %d buses", len(lines), len(conductors), len(buses))
	return nil
}

// Lines returns all line specs sorted by name.
func (s *Store) Lines() []models.LineSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LineSpec, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns a single line spec by name.
func (s *Store) Line(name string) (*models.LineSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.lines {
		if s.lines[i].Name == name {
			line := s.lines[i]
			return &line, true
		}
	}
	return nil, false
}

// Conductor resolves a conductor spec by name. Implements
// models.ConductorLookup.
func (s *Store) Conductor(name string) (*models.ConductorSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conductors[name]
	if !ok {
		return nil, false
	}
	return &c, true
}

func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", filepath.Base(path), err)
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFloat(row map[string]string, col, file string) (float64, error) {
	v, err := strconv.ParseFloat(row[col], 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q in %s: %w", col, row[col], file, err)
	}
	return v, nil
}

func loadConductors(path string) (map[string]models.ConductorSpec, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	conductors := make(map[string]models.ConductorSpec, len(rows))
	for _, row := range rows {
		res25, err := parseFloat(row, "RES_25C", "conductor_library.csv")
		if err != nil {
			return nil, err
		}
		res50, err := parseFloat(row, "RES_50C", "conductor_library.csv")
		if err != nil {
			return nil, err
		}
		radius, err := parseFloat(row, "CDRAD_in", "conductor_library.csv")
		if err != nil {
			return nil, err
		}

		c := models.ConductorSpec{
			Name:         row["ConductorName"],
			DiameterIn:   radius * 2,
			TLoC:         refTempLoC,
			THiC:         refTempHiC,
			RLoOhmPerFt:  res25 / ftPerMile,
			RHiOhmPerFt:  res50 / ftPerMile,
			Emissivity:   defaultEmissivity,
			Absorptivity: defaultAbsorptivity,
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		conductors[c.Name] = c
	}
	return conductors, nil
}

func loadBuses(path string) (map[string]models.Bus, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	buses := make(map[string]models.Bus, len(rows))
	for _, row := range rows {
		vNom, err := parseFloat(row, "v_nom", "buses.csv")
		if err != nil {
			return nil, err
		}
		buses[row["name"]] = models.Bus{Name: row["name"], VoltageKV: vNom}
	}
	return buses, nil
}

func loadFlows(path string) (map[string]float64, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	flows := make(map[string]float64, len(rows))
	for _, row := range rows {
		flow, err := parseFloat(row, "p0_nominal", "line_flows_nominal.csv")
		if err != nil {
			return nil, err
		}
		flows[row["name"]] = flow
	}
	return flows, nil
}

func loadLines(path string, buses map[string]models.Bus, flows map[string]float64) ([]models.LineSpec, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	lines := make([]models.LineSpec, 0, len(rows))
	for _, row := range rows {
		mot, err := parseFloat(row, "MOT", "lines.csv")
		if err != nil {
			return nil, err
		}

		// Voltage class comes from the bus0 endpoint.
		bus, ok := buses[row["bus0"]]
		if !ok {
			return nil, fmt.Errorf("line %s references unknown bus %q", row["name"], row["bus0"])
		}

		branch := row["branch_name"]
		if branch == "" {
			branch = row["name"]
		}

		line := models.LineSpec{
			Name:              row["name"],
			BranchName:        branch,
			Bus0:              row["bus0"],
			Bus1:              row["bus1"],
			Conductor:         row["conductor"],
			MaxOperatingTempC: mot,
			NominalFlowMVA:    flows[row["name"]],
			VoltageKV:         bus.VoltageKV,
		}
		if err := line.Validate(); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	return lines, nil
}
