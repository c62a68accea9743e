// ABOUTME: HTTP tests for the funcdeck API, edit sessions, the HTML index, and auth.
// ABOUTME: Each test runs against a real AppState rooted in a temp directory.
package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/server"
	"github.com/2389-research/funcdeck/scene/store"
	"github.com/2389-research/funcdeck/scene/web"
)

func newTestServer(t *testing.T, opts ...web.ServerOption) http.Handler {
	t.Helper()
	storage, err := store.NewStorageManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	state := server.NewAppState(storage, 0)
	t.Cleanup(state.StopAllEventPersisters)
	return web.NewServer(state, editor.NewStore(16, time.Hour), opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func createScene(t *testing.T, h http.Handler, title, description string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"title": title, "description": description})
	rec := do(t, h, http.MethodPost, "/api/scenes", string(body))
	expect(t, rec, http.StatusCreated)
	return decode[web.SceneView](t, rec).SceneID
}

func TestHealthAndKinds(t *testing.T) {
	h := newTestServer(t)
	expect(t, do(t, h, http.MethodGet, "/health", ""), http.StatusOK)

	rec := do(t, h, http.MethodGet, "/api/kinds", "")
	expect(t, rec, http.StatusOK)
	kinds := decode[[]web.KindView](t, rec)
	if len(kinds) != 12 {
		t.Fatalf("kinds = %d, want 12", len(kinds))
	}
	if kinds[0].Kind != "const" || len(kinds[0].Fields) != 1 || kinds[0].Fields[0].Value != "1.0" {
		t.Errorf("const kind = %+v", kinds[0])
	}
	for _, k := range kinds {
		if k.Kind == "sum" && !k.Binary {
			t.Error("sum not marked binary")
		}
	}
}

func TestSceneLifecycle(t *testing.T) {
	h := newTestServer(t)
	id := createScene(t, h, "Rig", "pendulum rig")
	base := "/api/scenes/" + id

	expect(t, do(t, h, http.MethodPost, base+"/functions", `{"name":"c1","kind":"const","params":{"constant":2.5}}`), http.StatusCreated)
	rec := do(t, h, http.MethodPost, base+"/functions", `{"name":"s","kind":"Sum"}`)
	expect(t, rec, http.StatusCreated)
	view := decode[web.SceneView](t, rec)
	if view.Selected != 1 || view.Functions[0].Users != 2 {
		t.Errorf("after add: selected %d, users(c1) %d", view.Selected, view.Functions[0].Users)
	}

	rec = do(t, h, http.MethodGet, base+"/deck", "")
	expect(t, rec, http.StatusOK)
	want := "scalar function: \"c1\", const, 2.5;\nscalar function: \"s\", sum,\n\t\"c1\", \"c1\";\n"
	if rec.Body.String() != want {
		t.Errorf("deck = %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, base+"/graph?format=dot", "")
	expect(t, rec, http.StatusOK)
	if got := rec.Body.String(); !strings.HasPrefix(got, "digraph Rig {") || !strings.Contains(got, `s -> c1 [label="f2"]`) {
		t.Errorf("graph = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("graph content type = %q", ct)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"remove referenced", http.MethodDelete, base + "/functions/c1", "", http.StatusConflict},
		{"edit to unresolved link", http.MethodPut, base + "/functions/s", `{"params":{"f1":"c1","f2":"nope"}}`, http.StatusConflict},
		{"edit to self link", http.MethodPut, base + "/functions/s", `{"params":{"f1":"s","f2":"c1"}}`, http.StatusConflict},
		{"edit missing function", http.MethodPut, base + "/functions/zz", `{"params":{"constant":1}}`, http.StatusNotFound},
		{"duplicate name", http.MethodPost, base + "/functions", `{"name":"c1","kind":"pow"}`, http.StatusConflict},
		{"unknown kind", http.MethodPost, base + "/functions", `{"name":"q","kind":"quartic"}`, http.StatusUnprocessableEntity},
		{"too few points", http.MethodPost, base + "/functions", `{"name":"t","kind":"multilinear","params":{"x":[0],"y":[0]}}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, base + "/functions", `{"name":`, http.StatusBadRequest},
		{"missing kind", http.MethodPost, base + "/functions", `{"name":"k","params":{"constant":2}}`, http.StatusBadRequest},
		{"null kind", http.MethodPost, base + "/functions", `{"name":"k","kind":null}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, base + "/select", `{"idx":0}`, http.StatusBadRequest},
		{"select out of range", http.MethodPost, base + "/select", `{"index":9}`, http.StatusUnprocessableEntity},
		{"unknown scene", http.MethodGet, "/api/scenes/01ARZ3NDEKTSV4RRFFQ69G5FAV", "", http.StatusNotFound},
		{"bad scene id", http.MethodGet, "/api/scenes/not-an-id/deck", "", http.StatusNotFound},
		{"unsupported graph format", http.MethodGet, base + "/graph?format=gif", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			expect(t, rec, tt.want)
			if errBody := decode[map[string]string](t, rec); errBody["error"] == "" {
				t.Errorf("no error message in %s", rec.Body.String())
			}
		})
	}

	expect(t, do(t, h, http.MethodPost, base+"/functions/c1/rename", `{"to":"k"}`), http.StatusOK)
	rec = do(t, h, http.MethodGet, base+"/deck", "")
	if !strings.Contains(rec.Body.String(), "\t\"k\", \"k\";") {
		t.Errorf("deck after rename = %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, base+"/undo", "")
	expect(t, rec, http.StatusOK)
	if view := decode[web.SceneView](t, rec); view.Functions[0].Function.Name != "c1" {
		t.Errorf("undo did not revert rename: %+v", view.Functions[0].Function)
	}

	expect(t, do(t, h, http.MethodPatch, base, `{"title":"Renamed"}`), http.StatusOK)
	rec = do(t, h, http.MethodGet, "/api/scenes", "")
	scenes := decode[[]web.SceneSummaryView](t, rec)
	if len(scenes) != 1 || scenes[0].Title != "Renamed" || scenes[0].FunctionCount != 2 {
		t.Errorf("scenes = %+v", scenes)
	}

	expect(t, do(t, h, http.MethodDelete, base, ""), http.StatusNoContent)
	expect(t, do(t, h, http.MethodGet, base, ""), http.StatusNotFound)
}

const pendulumYAML = `name: pendulum
description: "*swinging*"
functions:
  - {name: s, type: sum, f1: c1, f2: e}
  - {name: c1, type: const, constant: 2.5}
  - {name: e, type: exp, multiplier: 1.0}
`

func TestCreateSceneFromYAML(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/scenes", pendulumYAML, "Content-Type", "application/yaml")
	expect(t, rec, http.StatusCreated)
	view := decode[web.SceneView](t, rec)
	var names []string
	for _, fv := range view.Functions {
		names = append(names, fv.Function.Name)
	}
	if strings.Join(names, ",") != "c1,e,s" {
		t.Errorf("order = %v", names)
	}

	rec = do(t, h, http.MethodGet, "/api/scenes/"+view.SceneID+"/export.yaml", "")
	expect(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "name: pendulum") {
		t.Errorf("export = %s", rec.Body.String())
	}

	unresolved := "name: broken\nfunctions:\n  - {name: s, type: sum, f1: a, f2: b}\n"
	expect(t, do(t, h, http.MethodPost, "/api/scenes", unresolved, "Content-Type", "text/yaml"), http.StatusConflict)
	expect(t, do(t, h, http.MethodPost, "/api/scenes", "name: [", "Content-Type", "text/yaml"), http.StatusBadRequest)
}

func TestEditSessions(t *testing.T) {
	h := newTestServer(t)
	id := createScene(t, h, "Rig", "")
	base := "/api/scenes/" + id

	rec := do(t, h, http.MethodPost, base+"/sessions", `{"mode":"add","kind":"linear","name":"lin"}`)
	expect(t, rec, http.StatusCreated)
	sess := decode[web.SessionView](t, rec)
	if sess.Kind != "linear" || len(sess.Fields) != 4 {
		t.Fatalf("session = %+v", sess)
	}
	path := "/api/sessions/" + sess.SessionID

	rec = do(t, h, http.MethodPatch, path, `{"set":[{"field":"x2","value":"1"},{"field":"y2","value":"3"}]}`)
	expect(t, rec, http.StatusOK)
	sess = decode[web.SessionView](t, rec)
	want := "scalar function: \"lin\", linear,\n\t0.0, 1.0, 0.0, 3.0;\n"
	if sess.Preview != want {
		t.Errorf("preview = %q, want %q", sess.Preview, want)
	}

	expect(t, do(t, h, http.MethodPatch, path, `{"set":[{"field":"x2","value":"abc"}]}`), http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPost, path+"/execute", "")
	expect(t, rec, http.StatusOK)
	if view := decode[web.SceneView](t, rec); len(view.Functions) != 1 || view.Functions[0].Deck != want {
		t.Errorf("scene after execute = %+v", view)
	}
	expect(t, do(t, h, http.MethodGet, path, ""), http.StatusNotFound)

	// Cancelled sessions never reach the scene.
	rec = do(t, h, http.MethodPost, base+"/sessions", `{"mode":"edit","index":0}`)
	expect(t, rec, http.StatusCreated)
	editPath := "/api/sessions/" + decode[web.SessionView](t, rec).SessionID
	expect(t, do(t, h, http.MethodPatch, editPath, `{"set":[{"field":"y1","value":"9"}]}`), http.StatusOK)
	expect(t, do(t, h, http.MethodDelete, editPath, ""), http.StatusNoContent)
	expect(t, do(t, h, http.MethodDelete, editPath, ""), http.StatusNotFound)
	rec = do(t, h, http.MethodGet, base+"/deck", "")
	if rec.Body.String() != want {
		t.Errorf("deck after cancel = %q", rec.Body.String())
	}

	expect(t, do(t, h, http.MethodPost, base+"/sessions", `{"mode":"edit","index":5}`), http.StatusUnprocessableEntity)
	expect(t, do(t, h, http.MethodPost, base+"/sessions", `{"mode":"edit"}`), http.StatusBadRequest)
	expect(t, do(t, h, http.MethodPost, base+"/sessions", `{"mode":"add","kind":"div","name":"d"}`), http.StatusCreated)
}

func TestIndexedFunctionsCatchUp(t *testing.T) {
	h := newTestServer(t)
	id := createScene(t, h, "Rig", "")
	base := "/api/scenes/" + id
	expect(t, do(t, h, http.MethodPost, base+"/functions", `{"name":"a","kind":"const"}`), http.StatusCreated)
	expect(t, do(t, h, http.MethodPost, base+"/functions", `{"name":"m","kind":"mul"}`), http.StatusCreated)

	var rows []store.FunctionRow
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec := do(t, h, http.MethodGet, base+"/functions", "")
		expect(t, rec, http.StatusOK)
		rows = decode[[]store.FunctionRow](t, rec)
		if len(rows) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(rows) != 2 || rows[0].Name != "a" || rows[0].Users != 2 {
		t.Errorf("indexed rows = %+v", rows)
	}
}

func TestIndexPage(t *testing.T) {
	h := newTestServer(t)
	id := createScene(t, h, "Rig", "A **bold** rig <script>alert(1)</script>")
	expect(t, do(t, h, http.MethodPost, "/api/scenes/"+id+"/functions", `{"name":"c","kind":"const"}`), http.StatusCreated)

	rec := do(t, h, http.MethodGet, "/", "")
	expect(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{"<h2>Rig</h2>", "<strong>bold</strong>", "const, 1.0;"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("raw HTML from the description was rendered")
	}
}

func TestAuthToken(t *testing.T) {
	h := newTestServer(t, web.WithAuthToken("s3cret"))

	expect(t, do(t, h, http.MethodGet, "/health", ""), http.StatusOK)
	expect(t, do(t, h, http.MethodGet, "/api/kinds", ""), http.StatusUnauthorized)
	expect(t, do(t, h, http.MethodGet, "/api/kinds", "", "Authorization", "Bearer s3cret"), http.StatusOK)
	expect(t, do(t, h, http.MethodGet, "/login?token=s3cret", ""), http.StatusSeeOther)
}
