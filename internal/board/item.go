// Package board owns the canonical canvas state: the placed items, the
// stacking-order watermark, and the background settings. Every other
// component reads and writes through the Store.
package board

import "github.com/google/uuid"

// ItemType identifies the payload shape carried by an item.
type ItemType string

const (
	ItemPhoto  ItemType = "photo"
	ItemNote   ItemType = "note"
	ItemAudio  ItemType = "audio"
	ItemMedia  ItemType = "media"
	ItemDoodle ItemType = "doodle"
	ItemGif    ItemType = "gif"
)

// Position locates an item in canvas space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ItemData carries the type-dependent payload. Exactly one field group is
// populated per item type; fields irrelevant to a type stay absent.
type ItemData struct {
	// photo / gif
	ImageURL  string `json:"imageUrl,omitempty"`
	DateTaken string `json:"dateTaken,omitempty"`
	// note
	Content string `json:"content,omitempty"`
	Color   string `json:"color,omitempty"`
	// audio
	AudioURL  string `json:"audioUrl,omitempty"`
	WaveColor string `json:"waveColor,omitempty"`
	// media embed
	MediaURL string `json:"mediaUrl,omitempty"`
	Title    string `json:"title,omitempty"`
	// doodle
	Points      []Position `json:"points,omitempty"`
	StrokeColor string     `json:"strokeColor,omitempty"`
	StrokeWidth float64    `json:"strokeWidth,omitempty"`
}

// Item is a single placed object on the canvas.
type Item struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Position Position `json:"position"`
	ZIndex   int64    `json:"zIndex"`
	Rotation float64  `json:"rotation,omitempty"`
	Data     ItemData `json:"data"`

	// Transient placeholder markers. Items carrying them are never
	// persisted and never enter a history snapshot.
	IsLoading   bool   `json:"isLoading,omitempty"`
	AIRequestID string `json:"aiRequestId,omitempty"`
}

// IsPlaceholder reports whether the item is an unresolved in-flight
// placeholder awaiting external completion.
func (it Item) IsPlaceholder() bool {
	return it.IsLoading && it.AIRequestID != ""
}

// Clone returns a deep copy of the item, detaching slice-backed payloads.
func (it Item) Clone() Item {
	clone := it
	if len(it.Data.Points) > 0 {
		clone.Data.Points = append([]Position(nil), it.Data.Points...)
	}
	return clone
}

// NewID generates a locally assigned item identifier. IDs are created at the
// edge that creates the item, never issued by the server.
func NewID() string {
	return uuid.NewString()
}

// Background holds the canvas-level settings versioned alongside items in
// every history snapshot.
type Background struct {
	Image      string  `json:"backgroundImage,omitempty"`
	Color      string  `json:"backgroundColor,omitempty"`
	ShowGrid   bool    `json:"showGrid,omitempty"`
	Scrollable bool    `json:"canvasScrollable,omitempty"`
	Scale      float64 `json:"canvasScale,omitempty"`
}

// BackgroundPatch merges only the fields present in a background update.
type BackgroundPatch struct {
	Image      *string  `json:"backgroundImage,omitempty"`
	Color      *string  `json:"backgroundColor,omitempty"`
	ShowGrid   *bool    `json:"showGrid,omitempty"`
	Scrollable *bool    `json:"canvasScrollable,omitempty"`
	Scale      *float64 `json:"canvasScale,omitempty"`
}

// Apply returns the background with the patch's present fields merged in.
func (p BackgroundPatch) Apply(bg Background) Background {
	if p.Image != nil {
		bg.Image = *p.Image
	}
	if p.Color != nil {
		bg.Color = *p.Color
	}
	if p.ShowGrid != nil {
		bg.ShowGrid = *p.ShowGrid
	}
	if p.Scrollable != nil {
		bg.Scrollable = *p.Scrollable
	}
	if p.Scale != nil {
		bg.Scale = *p.Scale
	}
	return bg
}

// IsZero reports whether the patch carries no fields.
func (p BackgroundPatch) IsZero() bool {
	return p.Image == nil && p.Color == nil && p.ShowGrid == nil && p.Scrollable == nil && p.Scale == nil
}
