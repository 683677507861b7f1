package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

func writeAsset(t *testing.T, dir string, name string, rec *Record) {
	t.Helper()

	asset := Asset[*Record]{
		Version:    1,
		Identifier: rec.Id,
		Spec:       rec,
	}
	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("failed to marshal test asset: %v", err)
	}
	err = os.WriteFile(filepath.Join(dir, name), data, 0644)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func TestNewFileStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "path", store.path, tmpDir)
	testutil.AssertEqual(t, "records length", len(store.records), 0)
}

func TestNewFileStore_NonExistentDirectory(t *testing.T) {
	_, err := NewFileStore("/nonexistent/path/that/does/not/exist")
	if err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestNewFileStore_WithExistingRecords(t *testing.T) {
	tmpDir := t.TempDir()

	writeAsset(t, tmpDir, "sword.json", &Record{Id: "sword-1", TypeName: "thing", Seq: 1})
	writeAsset(t, tmpDir, "hall.json", &Record{Id: "hall-1", TypeName: "room", Seq: 2})

	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "record count", len(store.records), 2)

	rec, err := store.Load("sword-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "type", rec.TypeName, "thing")
	testutil.AssertEqual(t, "seq", rec.Seq, uint64(1))
}

func TestNewFileStore_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tmpDir, "bad.json"), []byte(`{invalid json`), 0644)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err = NewFileStore(tmpDir)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNewFileStore_ValidationError(t *testing.T) {
	tmpDir := t.TempDir()

	// Record with no type fails validation
	writeAsset(t, tmpDir, "bad.json", &Record{Id: "bad-1"})

	_, err := NewFileStore(tmpDir)
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestNewFileStore_DuplicateIdentity(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "subdir")
	err := os.Mkdir(subDir, 0755)
	if err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	rec := &Record{Id: "dup-1", TypeName: "thing"}
	writeAsset(t, tmpDir, "file1.json", rec)
	writeAsset(t, subDir, "file2.json", rec)

	_, err = NewFileStore(tmpDir)
	if err == nil {
		t.Error("expected duplicate identity error")
	}
}

func TestNewFileStore_IgnoresNonJSONFiles(t *testing.T) {
	tmpDir := t.TempDir()

	writeAsset(t, tmpDir, "valid.json", &Record{Id: "valid-1", TypeName: "thing"})
	err := os.WriteFile(filepath.Join(tmpDir, "readme.txt"), []byte("ignore me"), 0644)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "record count", len(store.records), 1)
}

func TestFileStore_Load(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}
	store.records = map[Identifier]*Record{
		"existing": {Id: "existing", TypeName: "thing"},
	}

	tests := map[string]struct {
		id       Identifier
		expErr   error
		expType  string
		expFound bool
	}{
		"load existing record": {
			id:       "existing",
			expFound: true,
			expType:  "thing",
		},
		"load missing record": {
			id:     "nonexistent",
			expErr: ErrNotFound,
		},
		"load empty id": {
			id:     "",
			expErr: ErrNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec, err := store.Load(tt.id)

			if tt.expErr != nil {
				if !errors.Is(err, tt.expErr) {
					t.Errorf("error = %v, expected %v", err, tt.expErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "type", rec.TypeName, tt.expType)
		})
	}
}

func TestFileStore_Save(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	rec := &Record{Id: "test-1", TypeName: "thing", Seq: 7}
	err = rec.Attrs.Set("name", "lantern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = store.Save("test-1", rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify the cache was updated
	cached, err := store.Load("test-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "cached name", cached.Attrs.GetString("name", ""), "lantern")

	// Verify the file round-trips
	data, err := os.ReadFile(filepath.Join(tmpDir, "test-1.json"))
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}

	var asset Asset[*Record]
	err = json.Unmarshal(data, &asset)
	if err != nil {
		t.Fatalf("failed to unmarshal saved data: %v", err)
	}

	testutil.AssertEqual(t, "asset version", asset.Version, uint(1))
	testutil.AssertEqual(t, "asset id", asset.Identifier, Identifier("test-1"))
	testutil.AssertEqual(t, "spec type", asset.Spec.TypeName, "thing")
	testutil.AssertEqual(t, "spec seq", asset.Spec.Seq, uint64(7))
}

func TestFileStore_Save_OverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	first := &Record{Id: "test-1", TypeName: "thing"}
	_ = first.Attrs.Set("name", "initial")
	err = store.Save("test-1", first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := &Record{Id: "test-1", TypeName: "thing"}
	_ = second.Attrs.Set("name", "updated")
	err = store.Save("test-1", second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached, err := store.Load("test-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "name", cached.Attrs.GetString("name", ""), "updated")
}

func TestFileStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	err = store.Save("test-1", &Record{Id: "test-1", TypeName: "thing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = store.Delete("test-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = store.Load("test-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, expected %v", err, ErrNotFound)
	}

	_, err = os.Stat(filepath.Join(tmpDir, "test-1.json"))
	if !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, stat returned %v", err)
	}

	// Deleting a missing record is a no-op
	err = store.Delete("test-1")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFileStore_Query(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}
	store.records = map[Identifier]*Record{
		"a": {Id: "a", TypeName: "thing"},
		"b": {Id: "b", TypeName: "room"},
		"c": {Id: "c", TypeName: "thing"},
	}

	tests := map[string]struct {
		pred     func(*Record) bool
		expCount int
	}{
		"match by type": {
			pred:     func(r *Record) bool { return r.TypeName == "thing" },
			expCount: 2,
		},
		"match all": {
			pred:     func(r *Record) bool { return true },
			expCount: 3,
		},
		"match none": {
			pred:     func(r *Record) bool { return false },
			expCount: 0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ids, err := store.Query(tt.pred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "count", len(ids), tt.expCount)
		})
	}
}

func TestFileStore_filePath(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	result := store.filePath("test-id")

	expected := filepath.Join(tmpDir, "test-id.json")
	testutil.AssertEqual(t, "file path", result, expected)
}
