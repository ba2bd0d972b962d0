package server

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/chunkd/internal/watcher"
)

type nopHandler struct{}

func (nopHandler) IndexFile(context.Context, string) error  { return nil }
func (nopHandler) RemoveFile(context.Context, string) error { return nil }

func TestWatchDirectories_disabled(t *testing.T) {
	ts := newTestServer(t)
	if code := doJSON(t, http.MethodGet, ts.URL+"/watch/directories", nil, nil); code != http.StatusNotImplemented {
		t.Errorf("list without watcher = %d, want 501", code)
	}
}

func TestWatchDirectories_addRemovePersists(t *testing.T) {
	ts, srv := newTestAPI(t)
	first := t.TempDir()
	w := watcher.New([]string{first}, nopHandler{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	srv.SetWatcher(w, cfgPath)

	var list watchDirectoriesResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/watch/directories", nil, &list); code != http.StatusOK {
		t.Fatalf("list = %d", code)
	}
	if len(list.Directories) != 1 || list.Directories[0] != first {
		t.Fatalf("initial directories = %v", list.Directories)
	}

	second := t.TempDir()
	if code := doJSON(t, http.MethodPost, ts.URL+"/watch/directories", watchDirectoryRequest{Path: second}, &list); code != http.StatusCreated {
		t.Fatalf("add = %d", code)
	}
	if len(list.Directories) != 2 {
		t.Fatalf("after add = %v", list.Directories)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), second) {
		t.Errorf("saved config lacks %s:\n%s", second, data)
	}

	if code := doJSON(t, http.MethodDelete, ts.URL+"/watch/directories?path="+url.QueryEscape(second), nil, &list); code != http.StatusOK {
		t.Fatalf("remove = %d", code)
	}
	if len(list.Directories) != 1 {
		t.Fatalf("after remove = %v", list.Directories)
	}
	data, _ = os.ReadFile(cfgPath)
	if strings.Contains(string(data), second) {
		t.Errorf("removed directory still saved:\n%s", data)
	}

	if code := doJSON(t, http.MethodDelete, ts.URL+"/watch/directories?path="+url.QueryEscape(second), nil, nil); code != http.StatusNotFound {
		t.Errorf("remove unknown = %d, want 404", code)
	}
	missing := filepath.Join(second, "missing")
	if code := doJSON(t, http.MethodPost, ts.URL+"/watch/directories", watchDirectoryRequest{Path: missing}, nil); code != http.StatusNotFound {
		t.Errorf("add missing = %d, want 404", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/watch/directories", watchDirectoryRequest{}, nil); code != http.StatusBadRequest {
		t.Errorf("add without path = %d, want 400", code)
	}
}
