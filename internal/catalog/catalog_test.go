package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"scenesync/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadScenesFiltersSplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splits.csv")
	writeFile(t, path, "video_id,fold\n41048190,Training\n41048191,Validation\n41048192,Training\n")

	all, err := LoadScenes(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(all))
	}

	training, err := LoadScenes(path, model.SplitTraining)
	if err != nil {
		t.Fatal(err)
	}
	if len(training) != 2 {
		t.Fatalf("expected 2 training scenes, got %d", len(training))
	}
	for _, s := range training {
		if s.Split != model.SplitTraining {
			t.Fatalf("unexpected split %s", s.Split)
		}
	}
}

func TestLoadScenesMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splits.csv")
	writeFile(t, path, "id,split\n1,Training\n")
	if _, err := LoadScenes(path, ""); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestMetadataMissingFileAssumesAvailable(t *testing.T) {
	m := LoadMetadata(t.TempDir())
	if !m.HighResDepthAvailable("anything") {
		t.Fatal("missing metadata should assume availability")
	}
}

func TestMetadataEligibility(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, MetadataPath(dir), "video_id,is_in_upsampling\n100,True\n200,False\n")

	m := LoadMetadata(dir)
	if !m.HighResDepthAvailable("100") {
		t.Fatal("scene 100 should be eligible")
	}
	if m.HighResDepthAvailable("200") {
		t.Fatal("scene 200 should be ineligible")
	}
	if m.HighResDepthAvailable("999") {
		t.Fatal("unknown scenes should be ineligible when metadata is present")
	}
}

func TestMetadataMalformedHeaderMeansIneligible(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, MetadataPath(dir), "bogus\n100\n")

	m := LoadMetadata(dir)
	if m.HighResDepthAvailable("100") {
		t.Fatal("unparseable metadata should classify scenes as ineligible")
	}
}
