package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeStatePath(t *testing.T) {
	h := &Handlers{stateDir: "/state"}

	cases := []struct {
		path string
		want string
	}{
		{"company/CHARTER.md", filepath.Join("/state", "company", "CHARTER.md")},
		{"workspace/SOUL.md", filepath.Join("/state", "workspace", "SOUL.md")},
		{"workspaces/builder/MEMORY.md", filepath.Join("/state", "workspaces", "builder", "MEMORY.md")},
		{"workstream.html", filepath.Join("/state", "workstream.html")},
		{"reset-ts.js", filepath.Join("/state", "reset-ts.js")},
		{"tasks-data.js", filepath.Join("/state", "tasks-data.js")},
		{"company-state.json", filepath.Join("/state", "company-state.json")},

		// Outside the whitelist.
		{"secrets/key.pem", ""},
		{"main.go", ""},
		{"", ""},

		// Traversal and poison.
		{"company/../../etc/passwd", ""},
		{"../company/CHARTER.md", ""},
		{"company/..", ""},
		{"company/kb/\x00evil", ""},
	}

	for _, c := range cases {
		got := h.safeStatePath(c.path)
		assert.Equal(t, c.want, got, "path %q", c.path)
	}
}

func TestStaticServing(t *testing.T) {
	f := newServerFixture(t)

	kbDir := filepath.Join(f.stateDir, "company", "kb")
	require.NoError(t, os.MkdirAll(kbDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "note.md"), []byte("remember this"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.stateDir, "secret.txt"), []byte("nope"), 0o644))

	resp, err := http.Get(f.ts.URL + "/company/kb/note.md")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "remember this", string(body))

	// Root files outside the whitelist are invisible.
	resp, err = http.Get(f.ts.URL + "/secret.txt")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Writes are rejected outright.
	req, err := http.NewRequest(http.MethodPut, f.ts.URL+"/company/kb/note.md", strings.NewReader("overwrite"))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(f.ts.URL+"/company/kb/note.md", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestListDir(t *testing.T) {
	f := newServerFixture(t)

	kbDir := filepath.Join(f.stateDir, "company", "kb")
	require.NoError(t, os.MkdirAll(kbDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "b.md"), []byte("b"), 0o644))

	resp, err := http.Get(f.ts.URL + "/_ls/company/kb")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, names)

	// Whitelist violations are forbidden.
	resp, err = http.Get(f.ts.URL + "/_ls/etc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Unknown-but-whitelisted directories 404.
	resp, err = http.Get(f.ts.URL + "/_ls/company/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
