package persist

import (
	"errors"
	"path/filepath"
	"testing"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndFetchRoundTrip(t *testing.T) {
	db := openTestDB(t)

	doc := Document{
		ID: "doc-1",
		Items: []board.Item{
			{ID: "b", Type: board.ItemNote, ZIndex: 2, Data: board.ItemData{Content: "note"}},
			{ID: "a", Type: board.ItemPhoto, ZIndex: 1, Data: board.ItemData{ImageURL: "http://x/a.jpg"}},
		},
		Settings: board.Background{Color: "#fff", ShowGrid: true},
	}
	if err := db.CreateDocument(doc); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := db.FetchDocument("doc-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].ID != "a" || got.Items[1].ID != "b" {
		t.Fatalf("expected stacking order [a b], got [%s %s]", got.Items[0].ID, got.Items[1].ID)
	}
	if got.Settings != doc.Settings {
		t.Fatalf("expected settings round-tripped, got %+v", got.Settings)
	}
	if got.Items[1].Data.Content != "note" {
		t.Fatalf("expected payload preserved, got %+v", got.Items[1].Data)
	}
}

func TestFetchUnknownDocument(t *testing.T) {
	db := openTestDB(t)
	_, err := db.FetchDocument("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPatchItemsUpsertsAndDeletes(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateDocument(Document{
		ID: "doc-1",
		Items: []board.Item{
			{ID: "keep", Type: board.ItemNote, Data: board.ItemData{Content: "old"}},
			{ID: "gone", Type: board.ItemNote},
		},
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := db.PatchItems("doc-1",
		[]board.Item{
			{ID: "keep", Type: board.ItemNote, Data: board.ItemData{Content: "new"}},
			{ID: "added", Type: board.ItemPhoto, ZIndex: 5, Data: board.ItemData{ImageURL: "http://x/p.jpg"}},
		},
		[]string{"gone"},
	)
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	got, err := db.FetchDocument("doc-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	byID := make(map[string]board.Item, len(got.Items))
	for _, it := range got.Items {
		byID[it.ID] = it
	}
	if len(byID) != 2 {
		t.Fatalf("expected 2 items after patch, got %d", len(byID))
	}
	if byID["keep"].Data.Content != "new" {
		t.Fatalf("expected keep updated, got %q", byID["keep"].Data.Content)
	}
	if _, ok := byID["gone"]; ok {
		t.Fatalf("expected gone deleted")
	}
	if byID["added"].ZIndex != 5 {
		t.Fatalf("expected added item persisted with z, got %+v", byID["added"])
	}
}

func TestPatchItemsUnknownDocument(t *testing.T) {
	db := openTestDB(t)
	err := db.PatchItems("missing", []board.Item{{ID: "a", Type: board.ItemNote}}, nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPatchSettingsReplacesOnlySettings(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateDocument(Document{
		ID:       "doc-1",
		Items:    []board.Item{{ID: "a", Type: board.ItemNote}},
		Settings: board.Background{Color: "#fff"},
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := db.PatchSettings("doc-1", board.Background{Color: "#000", Scale: 2}); err != nil {
		t.Fatalf("patch settings failed: %v", err)
	}

	got, _ := db.FetchDocument("doc-1")
	if got.Settings.Color != "#000" || got.Settings.Scale != 2 {
		t.Fatalf("expected settings replaced, got %+v", got.Settings)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected items untouched, got %d", len(got.Items))
	}
}

func TestOverwriteReplacesWholesale(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateDocument(Document{
		ID: "doc-1",
		Items: []board.Item{
			{ID: "a", Type: board.ItemNote},
			{ID: "b", Type: board.ItemNote},
		},
		Settings: board.Background{Color: "#fff"},
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := db.Overwrite(Document{
		ID:       "doc-1",
		Items:    []board.Item{{ID: "c", Type: board.ItemPhoto, Data: board.ItemData{ImageURL: "http://x/c.jpg"}}},
		Settings: board.Background{Image: "http://x/bg.png"},
	})
	if err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, _ := db.FetchDocument("doc-1")
	if len(got.Items) != 1 || got.Items[0].ID != "c" {
		t.Fatalf("expected only the new item, got %+v", got.Items)
	}
	if got.Settings.Image != "http://x/bg.png" || got.Settings.Color != "" {
		t.Fatalf("expected settings fully replaced, got %+v", got.Settings)
	}
}
