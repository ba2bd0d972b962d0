package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestForPath_stable(t *testing.T) {
	abs1, id1, err := ForPath("/srv/docs/handbook.pdf")
	if err != nil {
		t.Fatal(err)
	}
	_, id2, _ := ForPath("/srv/docs/./handbook.pdf")
	if id1 != id2 {
		t.Errorf("equivalent paths should share an id: %q vs %q", id1, id2)
	}
	if abs1 != "/srv/docs/handbook.pdf" {
		t.Errorf("abs = %q", abs1)
	}
	if !strings.HasPrefix(id1, Prefix) || len(id1) != len(Prefix)+64 {
		t.Errorf("unexpected id shape %q", id1)
	}
}

func TestForPath_differentFiles(t *testing.T) {
	_, a, _ := ForPath("/srv/docs/a.txt")
	_, b, _ := ForPath("/srv/docs/b.txt")
	if a == b {
		t.Errorf("different files share id %q", a)
	}
}

func TestForPath_relativeResolvesAgainstWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	abs, id, err := ForPath("notes.md")
	if err != nil {
		t.Fatal(err)
	}
	if abs != filepath.Join(wd, "notes.md") {
		t.Errorf("abs = %q", abs)
	}
	_, want, _ := ForPath(filepath.Join(wd, "notes.md"))
	if id != want {
		t.Errorf("relative and absolute forms differ: %q vs %q", id, want)
	}
}
