package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/marbles/internal/codec"
	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

func testDoc(t *testing.T, bodies int) *codec.Document {
	t.Helper()
	sc := scene.New()
	for i := 0; i < bodies; i++ {
		if _, err := sc.CreateBody(scene.BodyDef{Shape: geom.Circle{Radius: 1}, Position: geom.V(float64(i)*3, 0)}); err != nil {
			t.Fatal(err)
		}
	}
	return codec.Encode(sc)
}

func TestSceneSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	for _, f := range []codec.Format{codec.JSON, codec.YAML} {
		doc := testDoc(t, 2)
		if err := st.SaveScene("pair", doc, f); err != nil {
			t.Fatalf("save %v failed: %v", f, err)
		}
		got, err := st.LoadScene("pair")
		if err != nil {
			t.Fatalf("load %v failed: %v", f, err)
		}
		if len(got.Bodies) != 2 || got.NextID != doc.NextID {
			t.Errorf("%v: unexpected document %+v", f, got)
		}
	}

	// saving in YAML replaced the JSON copy
	if _, err := os.Stat(filepath.Join(st.BaseDir(), "scenes", "pair.json")); !os.IsNotExist(err) {
		t.Error("expected the json copy to be removed")
	}
	entries, err := os.ReadDir(filepath.Join(st.BaseDir(), "scenes"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the scene file, found %d entries", len(entries))
	}
}

func TestSceneList(t *testing.T) {
	st := New(t.TempDir())

	scenes, err := st.ListScenes()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(scenes) != 0 {
		t.Errorf("expected 0 scenes, got %d", len(scenes))
	}

	if err := st.SaveScene("b", testDoc(t, 3), codec.JSON); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveScene("a", testDoc(t, 1), codec.YAML); err != nil {
		t.Fatal(err)
	}
	// unreadable files are skipped
	if err := os.WriteFile(filepath.Join(st.BaseDir(), "scenes", "junk.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	scenes, err = st.ListScenes()
	if err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	if scenes[0].Name != "a" || scenes[0].Format != codec.YAML || scenes[0].Bodies != 1 {
		t.Errorf("unexpected first scene %+v", scenes[0])
	}
	if scenes[1].Name != "b" || scenes[1].Bodies != 3 || scenes[1].Version != codec.CurrentVersion {
		t.Errorf("unexpected second scene %+v", scenes[1])
	}
}

func TestSceneDelete(t *testing.T) {
	st := New(t.TempDir())
	if err := st.SaveScene("gone", testDoc(t, 1), codec.JSON); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteScene("gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadScene("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteScene("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestInvalidNames(t *testing.T) {
	st := New(t.TempDir())
	for _, name := range []string{"", ".", "..", ".hidden", "a/b", `a\b`, "c:d"} {
		if err := st.SaveScene(name, testDoc(t, 0), codec.JSON); !errors.Is(err, ErrInvalidName) {
			t.Errorf("%q: expected ErrInvalidName, got %v", name, err)
		}
		if _, err := st.LoadTrace(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("%q: expected ErrInvalidName for trace, got %v", name, err)
		}
	}
}

func TestCorruptSceneLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(st.BaseDir(), "scenes", "bad.yaml"), []byte("version: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadScene("bad"); !errors.Is(err, codec.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func sampleTrace() *Trace {
	tr := NewTrace("drop", 0.01, []scene.ID{2, 5}, []string{"ball", ""})
	tr.Append(0, []float64{0, 3, 0, 1, 1, 0})
	tr.Append(0.01, []float64{0, 2.9, 0.1, 1, 1, 0})
	tr.Append(0.02, []float64{0, 2.7, 0.2, 1, 1, 0})
	tr.Meta.Metrics["energy"] = 1.5
	return tr
}

func TestTraceSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	id, err := st.SaveTrace("", sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if id == "" {
		t.Error("expected non-empty trace id")
	}

	runDir := filepath.Join(st.BaseDir(), "traces", id)
	for _, f := range []string{"metadata.json", "states.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, f)); os.IsNotExist(err) {
			t.Errorf("%s not created", f)
		}
	}

	tr, err := st.LoadTrace(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if tr.Meta.Scene != "drop" || tr.Meta.Steps != 3 || tr.Meta.Metrics["energy"] != 1.5 {
		t.Errorf("unexpected metadata %+v", tr.Meta)
	}
	if len(tr.Frames) != 3 || len(tr.Times) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(tr.Frames))
	}

	ys, err := tr.Series(2, CompY)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{3, 2.9, 2.7}
	for i := range want {
		if ys[i] != want[i] {
			t.Errorf("y[%d]: want %v, got %v", i, want[i], ys[i])
		}
	}
	if _, err := tr.Series(9, CompX); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for untracked body, got %v", err)
	}
}

func TestTraceListAndDelete(t *testing.T) {
	st := New(t.TempDir())

	traces, err := st.ListTraces()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(traces) != 0 {
		t.Errorf("expected 0 traces, got %d", len(traces))
	}

	if _, err := st.SaveTrace("one", sampleTrace()); err != nil {
		t.Fatal(err)
	}
	if _, err := st.SaveTrace("two", sampleTrace()); err != nil {
		t.Fatal(err)
	}
	traces, err = st.ListTraces()
	if err != nil {
		t.Fatal(err)
	}
	if len(traces) != 2 {
		t.Errorf("expected 2 traces, got %d", len(traces))
	}

	if err := st.DeleteTrace("one"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadTrace("one"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, sampleTrace()); err != nil {
		t.Fatal(err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Steps != 3 || len(data.Columns) != 6 {
		t.Errorf("unexpected export %+v", data)
	}
	if data.Columns[0] != "ball.x" || data.Columns[3] != "#5.x" {
		t.Errorf("unexpected columns %v", data.Columns)
	}
}
