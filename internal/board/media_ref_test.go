package board

import "testing"

func TestClassifyURL(t *testing.T) {
	cases := []struct {
		url  string
		kind RefKind
	}{
		{"http://host/upload/a.jpg", RefRemoteURL},
		{"https://cdn.example.com/a.jpg", RefRemoteURL},
		{"/upload/a.jpg", RefRemoteURL},
		{"blob:http://localhost/123", RefLocalBlob},
		{"data:image/png;base64,iVBOR", RefBase64},
	}
	for _, tc := range cases {
		ref := ClassifyURL(tc.url)
		if ref.Kind != tc.kind {
			t.Fatalf("ClassifyURL(%q): expected kind %q, got %q", tc.url, tc.kind, ref.Kind)
		}
	}
}

func TestMediaRefOfPerType(t *testing.T) {
	photo := Item{ID: "p", Type: ItemPhoto, Data: ItemData{ImageURL: "blob:local"}}
	ref, ok := MediaRefOf(photo)
	if !ok || !ref.NeedsUpload() {
		t.Fatalf("expected photo blob ref needing upload, got ok=%v ref=%+v", ok, ref)
	}

	note := Item{ID: "n", Type: ItemNote, Data: ItemData{Content: "hi"}}
	if _, ok := MediaRefOf(note); ok {
		t.Fatalf("expected note to carry no media reference")
	}

	audio := Item{ID: "a", Type: ItemAudio, Data: ItemData{AudioURL: "https://host/a.mp3"}}
	ref, ok = MediaRefOf(audio)
	if !ok || ref.NeedsUpload() {
		t.Fatalf("expected hosted audio ref without upload, got ok=%v ref=%+v", ok, ref)
	}
}

func TestSetMediaURLWritesTypeSlot(t *testing.T) {
	it := Item{ID: "p", Type: ItemAudio, Data: ItemData{AudioURL: "blob:local"}}
	SetMediaURL(&it, "https://host/a.mp3")
	if it.Data.AudioURL != "https://host/a.mp3" {
		t.Fatalf("expected audio url replaced, got %q", it.Data.AudioURL)
	}
	if it.Data.ImageURL != "" {
		t.Fatalf("expected image slot untouched, got %q", it.Data.ImageURL)
	}
}
