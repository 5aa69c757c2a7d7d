package app

import "testing"

func TestReadMarkerTrimsContent(t *testing.T) {
	fsys := newMockFS()
	fsys.add("/media/X/ingest.txt", "  /srv/photos\n")

	dest, ok := ReadMarker(fsys, "/media/X")
	if !ok || dest != "/srv/photos" {
		t.Fatalf("unexpected marker %q %v", dest, ok)
	}
}

func TestReadMarkerBlankOrMissing(t *testing.T) {
	fsys := newMockFS()
	fsys.add("/media/Y/ingest.txt", " \n\t")

	if _, ok := ReadMarker(fsys, "/media/Y"); ok {
		t.Fatalf("expected blank marker to be ignored")
	}
	if _, ok := ReadMarker(fsys, "/media/Z"); ok {
		t.Fatalf("expected missing marker to be ignored")
	}
}

func TestWriteMarkerRoundTrip(t *testing.T) {
	fsys := newMockFS()
	if err := WriteMarker(fsys, "/media/X", "/srv/photos"); err != nil {
		t.Fatalf("write: %v", err)
	}
	dest, ok := ReadMarker(fsys, "/media/X")
	if !ok || dest != "/srv/photos" {
		t.Fatalf("unexpected marker %q %v", dest, ok)
	}
}
