package main

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCatalogue_CommaSeparated(t *testing.T) {
	in := "\xef\xbb\xbfid,name,lat,lon,price,address\n" +
		"s1,Repsol Deusto,43.2710,-2.9460,1.559,Lehendakari Aguirre 1\n" +
		"s2,BP Abando,43.2609,-2.9265,,\n"

	rows, skipped, err := parseCatalogue(strings.NewReader(in), "diesel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != 0 || len(rows) != 2 {
		t.Fatalf("expected 2 rows and no skips, got %d rows / %d skipped", len(rows), skipped)
	}
	if rows[0].ExternalID != "s1" || rows[0].Station.Price == nil || *rows[0].Station.Price != 1.559 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].Station.Price != nil {
		t.Errorf("expected no price for s2")
	}
	if rows[1].Station.FuelType != "diesel" {
		t.Errorf("expected default fuel type, got %q", rows[1].Station.FuelType)
	}
}

func TestParseCatalogue_SemicolonDecimalComma(t *testing.T) {
	in := "ID;Rotulo;Latitud;Longitud;Precio\n" +
		"4375;GALP;43,262;-2,935;1,479\n"

	rows, _, err := parseCatalogue(strings.NewReader(in), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	st := rows[0].Station
	if st.Name != "GALP" || st.Location.Lat != 43.262 || st.Location.Lon != -2.935 {
		t.Errorf("unexpected station %+v", st)
	}
	if st.Price == nil || *st.Price != 1.479 {
		t.Errorf("expected price 1.479, got %v", st.Price)
	}
}

func TestParseCatalogue_SkipsInvalidRows(t *testing.T) {
	in := "id,name,lat,lon\n" +
		",No ID,43.1,-2.9\n" +
		"a,,43.1,-2.9\n" +
		"b,Out of range,95,-2.9\n" +
		"c,Not a number,north,-2.9\n" +
		"d,Fine,43.1,-2.9\n"

	rows, skipped, err := parseCatalogue(strings.NewReader(in), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ExternalID != "d" {
		t.Errorf("expected only row d, got %+v", rows)
	}
	if skipped != 4 {
		t.Errorf("expected 4 skipped, got %d", skipped)
	}
}

func TestParseCatalogue_MissingColumns(t *testing.T) {
	_, _, err := parseCatalogue(strings.NewReader("name,lat\nX,1\n"), "")
	if err == nil {
		t.Fatal("expected error for a header without id and lon")
	}
}

func TestOpenCSV_FromZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("README.txt")
	w.Write([]byte("ignore me"))
	w, _ = zw.Create("stations.csv")
	w.Write([]byte("id,lat,lon,name\nz1,43.3,-2.9,Zipped\n"))
	zw.Close()

	if !isZip(buf.Bytes()) {
		t.Fatal("expected zip signature")
	}
	rc, err := openCSV(buf.Bytes())
	if err != nil {
		t.Fatalf("openCSV: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !strings.Contains(string(data), "Zipped") {
		t.Errorf("expected the csv member, got %q", data)
	}
}

func TestLoadManifest_Validation(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) string {
		p := filepath.Join(dir, "manifest.json")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	if _, err := loadManifest(write(`{"sources":[{"name":"a","url":"http://x","path":"y"}]}`)); err == nil {
		t.Error("expected error when both url and path are set")
	}
	m, err := loadManifest(write(`{"sources":[{"name":"local","path":"stations.csv","fuel_type":"diesel"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Sources) != 1 || m.Sources[0].FuelType != "diesel" {
		t.Errorf("unexpected manifest %+v", m)
	}
}
