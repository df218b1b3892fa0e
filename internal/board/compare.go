package board

// ItemEqual compares the durable fields of two items: position, rotation,
// type, and payload. The transient loading markers are deliberately excluded
// so a placeholder resolving in place does not read as "unchanged".
// Field-by-field comparison avoids the false positives a serialized
// comparison gets from key ordering and absent-vs-zero fields.
func ItemEqual(a, b Item) bool {
	if a.ID != b.ID || a.Type != b.Type {
		return false
	}
	if a.Position != b.Position || a.Rotation != b.Rotation || a.ZIndex != b.ZIndex {
		return false
	}
	return dataEqual(a.Data, b.Data)
}

func dataEqual(a, b ItemData) bool {
	if a.ImageURL != b.ImageURL || a.DateTaken != b.DateTaken {
		return false
	}
	if a.Content != b.Content || a.Color != b.Color {
		return false
	}
	if a.AudioURL != b.AudioURL || a.WaveColor != b.WaveColor {
		return false
	}
	if a.MediaURL != b.MediaURL || a.Title != b.Title {
		return false
	}
	if a.StrokeColor != b.StrokeColor || a.StrokeWidth != b.StrokeWidth {
		return false
	}
	if len(a.Points) != len(b.Points) {
		return false
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			return false
		}
	}
	return true
}

// ItemsEqual compares two item lists pairwise in order.
func ItemsEqual(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ItemEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// FilterPlaceholders returns the items with unresolved placeholders removed.
// The input slice is not modified.
func FilterPlaceholders(items []Item) []Item {
	filtered := make([]Item, 0, len(items))
	for _, it := range items {
		if it.IsPlaceholder() {
			continue
		}
		filtered = append(filtered, it)
	}
	return filtered
}
