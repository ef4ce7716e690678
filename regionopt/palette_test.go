package regionopt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	regionerrors "github.com/flaneur2020/region-optimizer/regionopt/errors"
	"github.com/flaneur2020/region-optimizer/regionopt/region"
	"github.com/flaneur2020/region-optimizer/regionopt/storage"
)

const diamond = "minecraft:diamond_ore"

func threshold(n uint32) *uint32 {
	return &n
}

// A chunk whose palettes contain diamond ore in three sections.
var rich = testChunk{
	x: 3, z: 4, status: region.StatusFull, inhabited: 50,
	palettes: [][]string{
		{"minecraft:stone", diamond},
		{diamond},
		{"minecraft:deepslate", diamond, "minecraft:air"},
		{"minecraft:air"},
	},
}

func TestPaletteExport_Threshold(t *testing.T) {
	s := storage.NewMockStorage()
	path := "world/region/r.0.0.mca"
	before := s.AddRegion(path, buildRegion(t, rich, kept))
	o := NewOptimizer(s, Options{})

	tests := []struct {
		name   string
		filter *Filter
		want   []PaletteMatch
	}{
		{"threshold met", &Filter{Name: diamond, Threshold: threshold(2)}, []PaletteMatch{{path, 3, 4}}},
		{"threshold equal", &Filter{Name: diamond, Threshold: threshold(3)}, []PaletteMatch{{path, 3, 4}}},
		{"threshold missed", &Filter{Name: diamond, Threshold: threshold(4)}, nil},
		{"any occurrence", &Filter{Name: "minecraft:stone"}, []PaletteMatch{{path, 3, 4}}},
		{"absent block", &Filter{Name: "minecraft:emerald_ore"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, result, err := o.PaletteExport(context.Background(), []string{path}, tt.filter, nil)
			if err != nil {
				t.Fatalf("PaletteExport() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("PaletteExport() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("match %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
			if result.TotalChunks != 2 || result.DeletedChunks != 0 || result.DeletedRegions != 0 {
				t.Errorf("result = %+v, want 2 chunks examined and nothing deleted", *result)
			}
		})
	}

	if after, _ := s.Digest(path); after != before || s.Writes(path) != 0 {
		t.Error("export modified the region")
	}
}

func TestPaletteExport_WithoutFilterUsesDeletionRule(t *testing.T) {
	s := storage.NewMockStorage()
	paths := []string{"world/region/r.0.0.mca", "world/region/r.1.0.mca", "world/region/broken.mca"}
	s.AddRegion(paths[0], buildRegion(t, kept, partial))
	s.AddRegion(paths[1], buildRegion(t, testChunk{x: 40, z: 2}))
	s.AddRegion(paths[2], []byte("short"))

	got, result, err := NewOptimizer(s, Options{Workers: 2}).PaletteExport(context.Background(), paths, nil, nil)
	if err != nil {
		t.Fatalf("PaletteExport() error = %v", err)
	}
	want := []PaletteMatch{{paths[0], 1, 0}, {paths[1], 40, 2}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("PaletteExport() = %v, want %v", got, want)
	}
	if result.TotalChunks != 3 {
		t.Errorf("TotalChunks = %d, want 3", result.TotalChunks)
	}
	if s.Removed(paths[2]) {
		t.Error("export must not delete unreadable regions")
	}
}

func TestPaletteImport_IgnoresMissingCoordinates(t *testing.T) {
	s := storage.NewMockStorage()
	path := "world/region/r.0.0.mca"
	s.AddRegion(path, buildRegion(t, rich, kept, partial))

	csvData := "region_file_path,chunk_x,chunk_z\n" +
		path + ",3,4\n" +
		path + ",1,0\n" +
		path + ",17,17\n"
	matches, err := ReadMatchesCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ReadMatchesCSV() error = %v", err)
	}
	if CountRegions(matches) != 1 {
		t.Errorf("CountRegions() = %d, want 1", CountRegions(matches))
	}

	result, err := NewOptimizer(s, Options{}).PaletteImport(context.Background(), matches, nil, nil)
	if err != nil {
		t.Fatalf("PaletteImport() error = %v", err)
	}
	want := OptimizeResult{TotalChunks: 3, DeletedChunks: 2}
	if *result != want {
		t.Errorf("PaletteImport() = %+v, want %+v", *result, want)
	}
	if s.Writes(path) != 1 {
		t.Errorf("region written %d times, want once", s.Writes(path))
	}

	r := readStored(t, s, path)
	if _, ok := r.Lookup(0, 0); !ok || r.Len() != 1 {
		t.Errorf("remaining chunks = %d, want only (0,0)", r.Len())
	}
}

func TestPaletteImport_SameFileSpelledDifferently(t *testing.T) {
	s := storage.NewMockStorage()
	path := "world/region/r.0.0.mca"
	s.AddRegion(path, buildRegion(t, rich, kept, partial))

	csvData := "region_file_path,chunk_x,chunk_z\n" +
		"./world/region/r.0.0.mca,3,4\n" +
		"world//region/r.0.0.mca,1,0\n" +
		"world/region/../region/r.0.0.mca,3,4\n"
	matches, err := ReadMatchesCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ReadMatchesCSV() error = %v", err)
	}
	if CountRegions(matches) != 1 {
		t.Errorf("CountRegions() = %d, want 1", CountRegions(matches))
	}

	result, err := NewOptimizer(s, Options{Workers: 4}).PaletteImport(context.Background(), matches, nil, nil)
	if err != nil {
		t.Fatalf("PaletteImport() error = %v", err)
	}
	want := OptimizeResult{TotalChunks: 3, DeletedChunks: 2}
	if *result != want {
		t.Errorf("PaletteImport() = %+v, want %+v", *result, want)
	}
	if s.Writes(path) != 1 {
		t.Errorf("region written %d times, want once", s.Writes(path))
	}
}

func TestPaletteImport_FilterRechecked(t *testing.T) {
	s := storage.NewMockStorage()
	path := "world/region/r.0.0.mca"
	s.AddRegion(path, buildRegion(t, rich, kept))

	matches := []PaletteMatch{{path, 3, 4}, {path, 0, 0}}
	filter := &Filter{Name: diamond, Threshold: threshold(2)}

	result, err := NewOptimizer(s, Options{}).PaletteImport(context.Background(), matches, filter, nil)
	if err != nil {
		t.Fatalf("PaletteImport() error = %v", err)
	}
	if result.DeletedChunks != 1 {
		t.Errorf("DeletedChunks = %d, want 1", result.DeletedChunks)
	}
	r := readStored(t, s, path)
	if _, ok := r.Lookup(0, 0); !ok {
		t.Error("chunk without diamond ore was deleted")
	}
	if _, ok := r.Lookup(3, 4); ok {
		t.Error("chunk with diamond ore was kept")
	}
}

func TestPaletteImport_EmptiesAndSkips(t *testing.T) {
	s := storage.NewMockStorage()
	emptied := "world/region/r.0.0.mca"
	broken := "world/region/r.9.9.mca"
	s.AddRegion(emptied, buildRegion(t, rich))
	s.AddRegion(broken, []byte("not a region"))

	var calls int
	matches := []PaletteMatch{{emptied, 3, 4}, {broken, 0, 0}, {emptied, 3, 4}, {"world/region/missing.mca", 1, 1}}
	result, err := NewOptimizer(s, Options{Workers: 1}).PaletteImport(context.Background(), matches, nil, func() { calls++ })
	if err != nil {
		t.Fatalf("PaletteImport() error = %v", err)
	}

	want := OptimizeResult{TotalChunks: 1, DeletedChunks: 1, DeletedRegions: 1}
	if *result != want {
		t.Errorf("PaletteImport() = %+v, want %+v", *result, want)
	}
	if calls != 3 {
		t.Errorf("progress called %d times, want once per region", calls)
	}
	if !s.Removed(emptied) {
		t.Error("emptied region was not deleted")
	}
	if s.Removed(broken) {
		t.Error("unreadable region must be skipped on import")
	}
}

func TestPaletteRoundTripThroughCSV(t *testing.T) {
	s := storage.NewMockStorage()
	paths := []string{"world/region/r.0.0.mca", "world/region/r.-1.0.mca"}
	s.AddRegion(paths[0], buildRegion(t, rich, kept))
	s.AddRegion(paths[1], buildRegion(t, testChunk{x: -5, z: 7, palettes: [][]string{{diamond}}}))
	o := NewOptimizer(s, Options{})

	filter := &Filter{Name: diamond}
	exported, _, err := o.PaletteExport(context.Background(), paths, filter, nil)
	if err != nil {
		t.Fatalf("PaletteExport() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMatchesCSV(&buf, exported); err != nil {
		t.Fatalf("WriteMatchesCSV() error = %v", err)
	}
	imported, err := ReadMatchesCSV(&buf)
	if err != nil {
		t.Fatalf("ReadMatchesCSV() error = %v", err)
	}

	result, err := o.PaletteImport(context.Background(), imported, filter, nil)
	if err != nil {
		t.Fatalf("PaletteImport() error = %v", err)
	}
	want := OptimizeResult{TotalChunks: 3, DeletedChunks: 2, DeletedRegions: 1}
	if *result != want {
		t.Errorf("PaletteImport() = %+v, want %+v", *result, want)
	}
}

func TestReadMatchesCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []PaletteMatch
		wantErr bool
	}{
		{
			name:  "header only",
			input: "region_file_path,chunk_x,chunk_z\n",
		},
		{
			name:  "columns in any order",
			input: "chunk_z,region_file_path,chunk_x\n-3,w/region/r.0.0.mca,12\n",
			want:  []PaletteMatch{{"w/region/r.0.0.mca", 12, -3}},
		},
		{
			name:  "quoted path",
			input: "region_file_path,chunk_x,chunk_z\n\"my world/region/r,0.mca\",1,2\n",
			want:  []PaletteMatch{{"my world/region/r,0.mca", 1, 2}},
		},
		{name: "empty input", input: "", wantErr: true},
		{name: "missing column", input: "region_file_path,chunk_x\nr.mca,1\n", wantErr: true},
		{name: "bad coordinate", input: "region_file_path,chunk_x,chunk_z\nr.mca,one,2\n", wantErr: true},
		{name: "coordinate overflow", input: "region_file_path,chunk_x,chunk_z\nr.mca,1,99999999999\n", wantErr: true},
		{name: "short row", input: "region_file_path,chunk_x,chunk_z\nr.mca,1\n", wantErr: true},
		{name: "empty path", input: "region_file_path,chunk_x,chunk_z\n,1,2\n", wantErr: true},
		{name: "one bad row fails all", input: "region_file_path,chunk_x,chunk_z\nr.mca,1,2\nr.mca,x,2\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadMatchesCSV(strings.NewReader(tt.input))
			if tt.wantErr {
				if !errors.Is(err, regionerrors.ErrFilterImport) {
					t.Fatalf("ReadMatchesCSV() error = %v, want ErrFilterImport", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadMatchesCSV() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ReadMatchesCSV() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWriteMatchesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMatchesCSV(&buf, []PaletteMatch{{"w/region/r.0.0.mca", -1, 31}})
	if err != nil {
		t.Fatalf("WriteMatchesCSV() error = %v", err)
	}
	want := "region_file_path,chunk_x,chunk_z\nw/region/r.0.0.mca,-1,31\n"
	if buf.String() != want {
		t.Errorf("WriteMatchesCSV() = %q, want %q", buf.String(), want)
	}
}
