package board

import "strings"

// RefKind classifies where an item's media payload currently lives. The kind
// is assigned once when the reference is created so downstream code never has
// to re-sniff URL prefixes.
type RefKind string

const (
	// RefRemoteURL points at content the server already hosts.
	RefRemoteURL RefKind = "remote"
	// RefLocalBlob points at an object URL for a blob that still lives on
	// the client and must be uploaded before persisting.
	RefLocalBlob RefKind = "local-blob"
	// RefBase64 is inline base64-encoded content, also pending upload.
	RefBase64 RefKind = "base64"
)

// MediaRef is a tagged media reference: the URL string plus its provenance.
type MediaRef struct {
	Kind RefKind `json:"kind"`
	URL  string  `json:"url"`
}

// NeedsUpload reports whether the referenced bytes still have to be pushed
// to the server before the item can enter a persisted payload.
func (r MediaRef) NeedsUpload() bool {
	return r.Kind == RefLocalBlob || r.Kind == RefBase64
}

// ClassifyURL assigns a kind to a raw URL at creation time. It exists for
// ingesting legacy payloads where only the string survived; new code should
// construct MediaRef values directly.
func ClassifyURL(url string) MediaRef {
	switch {
	case strings.HasPrefix(url, "blob:"):
		return MediaRef{Kind: RefLocalBlob, URL: url}
	case strings.HasPrefix(url, "data:"):
		return MediaRef{Kind: RefBase64, URL: url}
	default:
		return MediaRef{Kind: RefRemoteURL, URL: url}
	}
}

// MediaRefOf extracts the media reference carried by an item's payload, if
// the item type has one. The bool result is false for payloads with no media
// URL (notes, doodles).
func MediaRefOf(it Item) (MediaRef, bool) {
	switch it.Type {
	case ItemPhoto, ItemGif:
		if it.Data.ImageURL == "" {
			return MediaRef{}, false
		}
		return ClassifyURL(it.Data.ImageURL), true
	case ItemAudio:
		if it.Data.AudioURL == "" {
			return MediaRef{}, false
		}
		return ClassifyURL(it.Data.AudioURL), true
	case ItemMedia:
		if it.Data.MediaURL == "" {
			return MediaRef{}, false
		}
		return ClassifyURL(it.Data.MediaURL), true
	default:
		return MediaRef{}, false
	}
}

// SetMediaURL writes a resolved URL back into the payload slot the item type
// uses for media content.
func SetMediaURL(it *Item, url string) {
	switch it.Type {
	case ItemPhoto, ItemGif:
		it.Data.ImageURL = url
	case ItemAudio:
		it.Data.AudioURL = url
	case ItemMedia:
		it.Data.MediaURL = url
	}
}
