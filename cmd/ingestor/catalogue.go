package main

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samirrijal/stationmap/internal/adapters/postgres"
	"github.com/samirrijal/stationmap/internal/core/domain"
)

// column aliases accepted in catalogue headers
var (
	idColumns    = []string{"id", "station_id", "external_id"}
	nameColumns  = []string{"name", "rotulo", "brand"}
	latColumns   = []string{"lat", "latitude", "latitud"}
	lonColumns   = []string{"lon", "lng", "longitude", "longitud"}
	priceColumns = []string{"price", "precio"}
)

// parseCatalogue reads a CSV station catalogue. Rows without an id or with
// an invalid name, coordinate or price are skipped and counted.
func parseCatalogue(r io.Reader, defaultFuel string) (rows []postgres.ImportRow, skipped int, err error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, 0, err
	}

	reader := csv.NewReader(br)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(first)

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, required := range [][]string{idColumns, latColumns, lonColumns} {
		if _, ok := lookup(cols, required); !ok {
			return nil, 0, fmt.Errorf("missing column %q", required[0])
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		row, ok := parseRow(record, cols, defaultFuel)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func parseRow(record []string, cols map[string]int, defaultFuel string) (postgres.ImportRow, bool) {
	id := getField(record, cols, idColumns...)
	lat, errLat := parseDecimal(getField(record, cols, latColumns...))
	lon, errLon := parseDecimal(getField(record, cols, lonColumns...))
	if id == "" || errLat != nil || errLon != nil {
		return postgres.ImportRow{}, false
	}

	in := domain.StationInput{
		Name:     getField(record, cols, nameColumns...),
		Location: domain.GeoPoint{Lat: lat, Lon: lon},
		Address:  getField(record, cols, "address", "direccion"),
		FuelType: getField(record, cols, "fuel_type"),
	}
	if in.FuelType == "" {
		in.FuelType = defaultFuel
	}
	if raw := getField(record, cols, priceColumns...); raw != "" {
		if p, err := parseDecimal(raw); err == nil {
			in.Price = &p
		}
	}
	if in.Validate() != nil {
		return postgres.ImportRow{}, false
	}
	return postgres.ImportRow{ExternalID: id, Station: in}, true
}

// parseDecimal accepts both "1.549" and the European "1,549".
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

// sniffDelimiter picks ';' for catalogues exported with decimal commas.
func sniffDelimiter(sample []byte) rune {
	line, _, _ := bytes.Cut(sample, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func lookup(cols map[string]int, names []string) (int, bool) {
	for _, n := range names {
		if idx, ok := cols[n]; ok {
			return idx, true
		}
	}
	return 0, false
}

func getField(record []string, cols map[string]int, names ...string) string {
	idx, ok := lookup(cols, names)
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// openCSV returns the first .csv member of a zip archive.
func openCSV(data []byte) (io.ReadCloser, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			return f.Open()
		}
	}
	return nil, errors.New("no .csv file in archive")
}
