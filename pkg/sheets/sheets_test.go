package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"leaguesync/pkg/errors"
	"leaguesync/pkg/logger"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name        string
		rng         string
		expected    Bounds
		expectError bool
	}{
		{name: "open ended", rng: "A2:M", expected: Bounds{StartCol: 1, StartRow: 2, EndCol: 13, EndRow: 0}},
		{name: "single row", rng: "G5:M5", expected: Bounds{StartCol: 7, StartRow: 5, EndCol: 13, EndRow: 5}},
		{name: "single cell", rng: "B3", expected: Bounds{StartCol: 2, StartRow: 3, EndCol: 2, EndRow: 3}},
		{name: "reversed", rng: "M2:A2", expectError: true},
		{name: "garbage", rng: "??", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.rng)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBounds_Clip(t *testing.T) {
	rows := [][]string{
		{"header", "x"},
		{"1", "a", "b", "c"},
		{"2"},
		{},
	}
	b := Bounds{StartCol: 1, StartRow: 2, EndCol: 2, EndRow: 0}
	assert.Equal(t, [][]string{{"1", "a"}, {"2"}, nil}, b.Clip(rows))
}

func TestA1(t *testing.T) {
	assert.Equal(t, "'Pool A'!A2:M", A1("Pool A", "A2:M"))
	assert.Equal(t, "'Men''s'!G3:M3", A1("Men's", "G3:M3"))
}

func writeFixture(t *testing.T, dir, id string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Squadre"))
	require.NoError(t, f.SetSheetRow("Squadre", "A1", &[]interface{}{"Squadra"}))
	require.NoError(t, f.SetSheetRow("Squadre", "A2", &[]interface{}{"Club X"}))
	_, err := f.NewSheet("Pool A")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Pool A", "A1", &[]interface{}{"N", "Data"}))
	require.NoError(t, f.SetSheetRow("Pool A", "A2", &[]interface{}{"07A", "2-mag", "18:00"}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, id+".xlsx")))
}

func TestXLSXStore_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "u21m")
	store := NewXLSXStore(dir)
	ctx := context.Background()

	tabs, err := store.ListSheets(ctx, "u21m")
	require.NoError(t, err)
	assert.Equal(t, []Sheet{{Title: "Squadre"}, {Title: "Pool A"}}, tabs)

	rows, err := store.ReadRange(ctx, "u21m", "Pool A", "A2:M")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"07A", "2-mag", "18:00"}}, rows)

	require.NoError(t, store.WriteRange(ctx, "u21m", "Pool A", "G2:M2", [][]string{{"2-0", "21", "15"}}))

	rows, err = store.ReadRange(ctx, "u21m", "Pool A", "G2:I2")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2-0", "21", "15"}}, rows)
}

func TestXLSXStore_Missing(t *testing.T) {
	store := NewXLSXStore(t.TempDir())
	_, err := store.ListSheets(context.Background(), "nope")
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
}

func newTestGoogleClient(t *testing.T, handler http.HandlerFunc) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return newGoogleClient(svc, GoogleOptions{RequestsPerSecond: 100, Timeout: time.Second}, logger.NewNop())
}

func TestGoogleClient_ListAndRead(t *testing.T) {
	client := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"range":  "'Pool A'!A2:M3",
				"values": [][]interface{}{{"07A", "2-mag"}, {"08A"}},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"sheets": []map[string]interface{}{
					{"properties": map[string]interface{}{"title": "Squadre"}},
					{"properties": map[string]interface{}{"title": "Pool A"}},
				},
			})
		}
	})
	ctx := context.Background()

	tabs, err := client.ListSheets(ctx, "sheet-1")
	require.NoError(t, err)
	assert.Equal(t, []Sheet{{Title: "Squadre"}, {Title: "Pool A"}}, tabs)

	rows, err := client.ReadRange(ctx, "sheet-1", "Pool A", "A2:M")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"07A", "2-mag"}, {"08A"}}, rows)
}

func TestGoogleClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected errors.ErrorType
	}{
		{"not found", http.StatusNotFound, errors.ErrorTypeNotFound},
		{"bad request", http.StatusBadRequest, errors.ErrorTypeUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"x"}}`))
			})
			_, err := client.ListSheets(context.Background(), "sheet-1")
			require.Error(t, err)
			assert.Equal(t, tt.expected, errors.TypeOf(err))
		})
	}
}
