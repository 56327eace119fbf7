package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// The read-only file surface is whitelisted: only paths under these first
// segments (relative to the state root) are ever served or listed, plus a
// few root-level dashboard assets: three exact names and any file ending in
// -data.js. Everything else — and any
// request smelling of traversal — is rejected.
var allowedDirPrefixes = []string{"company", "workspace", "workspaces"}

func allowedRootFile(name string) bool {
	switch name {
	case "workstream.html", "reset-ts.js", "company-state.json":
		return true
	}
	return strings.HasSuffix(name, "-data.js")
}

// safeStatePath validates a request path against the whitelist and resolves
// it under the state root. Returns "" when the path is not servable.
func (h *Handlers) safeStatePath(reqPath string) string {
	// Raw ".." anywhere is rejected before cleaning; a traversal attempt is
	// hostile even when it would resolve inside the root.
	if strings.ContainsRune(reqPath, 0) || strings.Contains(reqPath, "..") {
		return ""
	}
	cleaned := path.Clean("/" + reqPath)
	rel := strings.TrimPrefix(cleaned, "/")
	if rel == "" {
		return ""
	}

	first := rel
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		first = rel[:i]
	} else if allowedRootFile(rel) {
		return filepath.Join(h.stateDir, filepath.FromSlash(rel))
	}

	allowed := false
	for _, prefix := range allowedDirPrefixes {
		if first == prefix {
			allowed = true
			break
		}
	}
	if !allowed {
		return ""
	}

	full := filepath.Join(h.stateDir, filepath.FromSlash(rel))

	// Join + Clean above already collapse any residue, but canonicalize and
	// re-check so a crafted path can never escape the state root.
	root := filepath.Clean(h.stateDir) + string(filepath.Separator)
	if !strings.HasPrefix(filepath.Clean(full)+string(filepath.Separator), root) {
		return ""
	}
	return full
}

// handleListDir serves GET /_ls/<dir>: a JSON array of the entry names in a
// whitelisted directory, for the dashboard's workspace file tree.
func (h *Handlers) handleListDir(w http.ResponseWriter, r *http.Request) {
	dir := strings.TrimPrefix(r.URL.Path, "/_ls/")
	full := h.safeStatePath(dir)
	if full == "" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(names)
}

// handleStatic serves whitelisted state files read-only. Strictly GET/HEAD;
// directories are not listed here.
func (h *Handlers) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	full := h.safeStatePath(r.URL.Path)
	if full == "" {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}
