package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTextfile(t *testing.T) {
	ActivitiesDownloaded.Add(2)
	ActivitiesSkipped.WithLabelValues("no_gps").Inc()

	path := filepath.Join(t.TempDir(), "heatmap.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"heatmap_activities_downloaded_total",
		`heatmap_activities_skipped_total{reason="no_gps"}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
