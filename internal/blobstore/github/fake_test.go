package github

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeGitHub implements the slice of the GitHub REST API the stores use.
type fakeGitHub struct {
	mu       sync.Mutex
	token    string
	scopes   string
	gists    map[string]*gist
	files    map[string]contentFile // "owner/repo/path"
	repos    map[string]bool
	push     bool
	requests []*http.Request
	next     int
}

func newFakeGitHub(t *testing.T, token string) (*fakeGitHub, *httptest.Server) {
	t.Helper()
	f := &fakeGitHub{
		token:  token,
		scopes: "gist, repo",
		gists:  map[string]*gist{},
		files:  map[string]contentFile{},
		repos:  map[string]bool{},
		push:   true,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", f.user)
	mux.HandleFunc("GET /gists/{id}", f.getGist)
	mux.HandleFunc("PATCH /gists/{id}", f.patchGist)
	mux.HandleFunc("POST /gists", f.createGist)
	mux.HandleFunc("GET /repos/{owner}/{repo}", f.getRepo)
	mux.HandleFunc("POST /user/repos", f.createRepo)
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", f.getContent)
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", f.putContent)
	srv := httptest.NewServer(f.record(mux))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGitHub) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(r.Context()))
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeGitHub) authed(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		writeJSON(w, http.StatusUnauthorized, apiError{Message: "Bad credentials"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeGitHub) set(fn func(f *fakeGitHub)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGitHub) nextID() string {
	f.next++
	return fmt.Sprintf("%04d", f.next)
}

func (f *fakeGitHub) user(w http.ResponseWriter, r *http.Request) {
	if !f.authed(w, r) {
		return
	}
	f.mu.Lock()
	scopes := f.scopes
	f.mu.Unlock()
	if scopes != "-" {
		w.Header().Set("X-OAuth-Scopes", scopes)
	}
	writeJSON(w, http.StatusOK, map[string]string{"login": "octo"})
}

func (f *fakeGitHub) getGist(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gists[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Message: "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (f *fakeGitHub) patchGist(w http.ResponseWriter, r *http.Request) {
	if !f.authed(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gists[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Message: "Not Found"})
		return
	}
	var body struct {
		Files map[string]gistFile `json:"files"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	for name, file := range body.Files {
		file.Filename = name
		g.Files[name] = file
	}
	f.bump(g)
	writeJSON(w, http.StatusOK, g)
}

func (f *fakeGitHub) bump(g *gist) {
	v := struct {
		Version string `json:"version"`
	}{Version: "v" + f.nextID()}
	g.History = append([]struct {
		Version string `json:"version"`
	}{v}, g.History...)
}

func (f *fakeGitHub) createGist(w http.ResponseWriter, r *http.Request) {
	if !f.authed(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var body struct {
		Files map[string]gistFile `json:"files"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	g := &gist{ID: "g" + f.nextID(), Files: body.Files}
	f.bump(g)
	f.gists[g.ID] = g
	writeJSON(w, http.StatusCreated, g)
}

func (f *fakeGitHub) getRepo(w http.ResponseWriter, r *http.Request) {
	if !f.authed(w, r) {
		return
	}
	name := r.PathValue("owner") + "/" + r.PathValue("repo")
	f.mu.Lock()
	exists := f.repos[name]
	f.mu.Unlock()
	if !exists {
		writeJSON(w, http.StatusNotFound, apiError{Message: "Not Found"})
		return
	}
	info := repoInfo{FullName: name}
	f.mu.Lock()
	info.Permissions.Push = f.push
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, info)
}

func (f *fakeGitHub) createRepo(w http.ResponseWriter, r *http.Request) {
	if !f.authed(w, r) {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	name := "octo/" + body.Name
	f.mu.Lock()
	f.repos[name] = true
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, repoInfo{FullName: name})
}

func (f *fakeGitHub) contentKey(r *http.Request) string {
	return r.PathValue("owner") + "/" + r.PathValue("repo") + "/" + r.PathValue("path")
}

func (f *fakeGitHub) getContent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[f.contentKey(r)]
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Message: "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (f *fakeGitHub) putContent(w http.ResponseWriter, r *http.Request) {
	if !f.authed(w, r) {
		return
	}
	var body struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.contentKey(r)
	cur, exists := f.files[key]
	switch {
	case exists && body.SHA != cur.SHA:
		writeJSON(w, http.StatusConflict, apiError{Message: key + " does not match " + body.SHA})
		return
	case !exists && body.SHA != "":
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Message: "sha wasn't supplied correctly"})
		return
	}
	raw, _ := base64.StdEncoding.DecodeString(body.Content)
	sum := sha1.Sum(raw)
	file := contentFile{
		SHA:         hex.EncodeToString(sum[:]),
		Content:     wrap76(body.Content),
		Encoding:    "base64",
		DownloadURL: "https://raw.example.com/" + key,
	}
	f.files[key] = file
	writeJSON(w, http.StatusOK, putResponse{Content: file})
}

// wrap76 mimics GitHub's line-wrapped base64.
func wrap76(s string) string {
	var b strings.Builder
	for len(s) > 60 {
		b.WriteString(s[:60])
		b.WriteString("\n")
		s = s[60:]
	}
	b.WriteString(s)
	return b.String()
}
