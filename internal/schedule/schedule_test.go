package schedule

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/semitone-cli/internal/model"
)

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Rooms")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "rooms.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

const roomsCSV = "id,Уровень,Уровень,ROM_Зона,ROM_Подзона_Index,locked\n" +
	"r1,L1,L2,Квартира 1,,0\n" +
	"r2,L1,,Квартира 2,old,true\n" +
	",,,,,\n" +
	",L3,,МОП,,\n"

func TestRead_CSV(t *testing.T) {
	path := writeTestFile(t, "rooms.csv", []byte(roomsCSV))

	s, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, s.Rooms, 3)

	r1 := s.Rooms[0]
	assert.Equal(t, "r1", r1.ID)
	assert.Equal(t, model.CategoryRooms, r1.Category)
	assert.Equal(t, []string{"L1", "L2"}, r1.Values("Уровень"))
	level, _ := r1.Param("Уровень")
	assert.Equal(t, "L2", level)
	assert.False(t, r1.Locked)

	// The sub-zone column exists even when empty.
	_, ok := r1.Param("ROM_Подзона_Index")
	assert.True(t, ok)

	assert.True(t, s.Rooms[1].Locked)
	// Blank rows are skipped; rows without an id get a positional one.
	assert.Equal(t, "rooms.csv:row-5", s.Rooms[2].ID)
}

func TestRead_TSVWindows1251(t *testing.T) {
	text := "id\tROM_Зона\nr1\tКвартира 7\n"
	encoded, err := charmap.Windows1251.NewEncoder().String(text)
	require.NoError(t, err)
	path := writeTestFile(t, "rooms.txt", []byte(encoded))

	s, err := Read(context.Background(), path, Options{Encoding: "windows-1251"})
	require.NoError(t, err)
	require.Len(t, s.Rooms, 1)
	v, _ := s.Rooms[0].Param("ROM_Зона")
	assert.Equal(t, "Квартира 7", v)
}

func TestRead_BOMAndNFCHeader(t *testing.T) {
	// "й" decomposed into "и" + combining breve.
	decomposed := norm.NFD.String("Зона_й")
	path := writeTestFile(t, "rooms.csv", []byte("\ufeffid,"+decomposed+"\nr1,x\n"))

	s, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Зона_й"}, s.Header)
	_, ok := s.Rooms[0].Param("Зона_й")
	assert.True(t, ok)
}

func TestRead_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"id", "category", "ROM_Зона"},
		{"r1", "", "Квартира 1"},
		{"r2", "OST_Areas", "Квартира 2"},
	})

	s, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, s.Rooms, 2)
	assert.Equal(t, model.CategoryRooms, s.Rooms[0].Category)
	assert.Equal(t, "OST_Areas", s.Rooms[1].Category)
}

func TestRead_XLSXMissingSheet(t *testing.T) {
	path := createTestXLSX(t, [][]string{{"id"}})
	_, err := Read(context.Background(), path, Options{Sheet: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Nope" not found`)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(context.Background(), "rooms.pdf", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = Read(context.Background(), "/nonexistent/rooms.csv", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule: open")

	empty := writeTestFile(t, "empty.csv", nil)
	_, err = Read(context.Background(), empty, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header row")

	path := writeTestFile(t, "rooms.csv", []byte("id\n"))
	_, err = Read(context.Background(), path, Options{Delimiter: ";;"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single character")

	_, err = Read(context.Background(), path, Options{Encoding: "klingon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")
}

func TestFromRows_FallbackIDs(t *testing.T) {
	rows := [][]string{{"ROM_Зона"}, {"Квартира 1"}, {"Квартира 2"}}

	a, err := FromRows("a.csv", rows)
	require.NoError(t, err)
	b, err := FromRows("b.csv", rows)
	require.NoError(t, err)
	assert.Equal(t, "a.csv:row-2", a.Rooms[0].ID)
	assert.Equal(t, "a.csv:row-3", a.Rooms[1].ID)
	assert.Equal(t, "b.csv:row-2", b.Rooms[0].ID)

	anon, err := FromRows("", rows)
	require.NoError(t, err)
	assert.Equal(t, "row-2", anon.Rooms[0].ID)
}

func TestRows_RoundTripAndNewColumns(t *testing.T) {
	s, err := FromRows("", [][]string{
		{"id", "level", "level", "sub", "locked"},
		{"r1", "L1", "L2", "", "false"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Rooms[0].SetParam("sub", "Z.Полутон"))
	s.Rooms[0].AddParam("extra", "x")

	rows := s.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "level", "level", "sub", "locked", "extra"}, rows[0])
	assert.Equal(t, []string{"r1", "L1", "L2", "Z.Полутон", "false", "x"}, rows[1])
}

func TestWrite_CSVAndXLSX(t *testing.T) {
	s, err := FromRows("", [][]string{{"id", "ROM_Зона"}, {"r1", "Квартира 1"}})
	require.NoError(t, err)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, Write(csvPath, s, Options{}))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "id,ROM_Зона\nr1,Квартира 1\n", string(data))

	xlsxPath := filepath.Join(dir, "out.xlsx")
	require.NoError(t, Write(xlsxPath, s, Options{}))
	back, err := Read(context.Background(), xlsxPath, Options{})
	require.NoError(t, err)
	require.Len(t, back.Rooms, 1)
	v, _ := back.Rooms[0].Param("ROM_Зона")
	assert.Equal(t, "Квартира 1", v)
}

func TestWrite_EncodedTSV(t *testing.T) {
	s, err := FromRows("", [][]string{{"id", "ROM_Зона"}, {"r1", "Квартира 1"}})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, Write(path, s, Options{Encoding: "windows-1251"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "id\tROM_Зона\nr1\tКвартира 1\n", string(decoded))
}

func TestReadCSV_Delimiter(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader("a;b\n1;2\n"), CSVOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestReadCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.csv", FormatCSV},
		{"a.TXT", FormatTSV},
		{"a.tsv", FormatTSV},
		{"a.xlsx", FormatXLSX},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
