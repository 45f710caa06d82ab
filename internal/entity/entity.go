// Package entity defines the content hierarchy of the petdex backend:
// Pet → DataInstance → {Knowledge, Image}.
//
// Construction invariants live here, once, instead of being re-checked at
// every call site:
//   - Knowledge must carry a URL or non-blank content.
//   - Image must carry an image URL.
//   - DataInstance defaults (category "general", empty metadata/tags) are
//     applied at construction.
//
// Entities are created through the storage gateway, never self-persisting.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category classifies a DataInstance. The set is fixed and external-facing.
type Category string

const (
	CategorySocial   Category = "social"
	CategoryTrivia   Category = "trivia"
	CategoryScience  Category = "science"
	CategoryCode     Category = "code"
	CategoryTrenches Category = "trenches"
	CategoryGeneral  Category = "general"
)

// ParseCategory validates a category string. An empty string resolves to
// CategoryGeneral; anything outside the fixed enumeration is rejected.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryGeneral, nil
	}
	switch c := Category(s); c {
	case CategorySocial, CategoryTrivia, CategoryScience, CategoryCode, CategoryTrenches, CategoryGeneral:
		return c, nil
	}
	return "", &InvalidCategoryError{Value: s}
}

func (c Category) String() string { return string(c) }

// Pet is the top-level content container, owned by exactly one wallet
// address. A pet exists independently of content: zero instances is valid.
type Pet struct {
	ID          uuid.UUID `json:"id"`
	OwnerWallet string    `json:"owner_wallet"`
	Name        string    `json:"name"`
	Rarity      string    `json:"rarity"`
	Social      int       `json:"social"`
	Trivia      int       `json:"trivia"`
	Science     int       `json:"science"`
	Code        int       `json:"code"`
	Trenches    int       `json:"trenches"`
	Streak      int       `json:"streak"`
	CreatedAt   time.Time `json:"created_at"`
}

// DataInstance is a categorized unit of content belonging to one pet.
// ContentType is an informational tag (documented examples: text, markdown,
// json, url, file) and is not validated against a schema.
type DataInstance struct {
	ID          uuid.UUID      `json:"id"`
	PetID       uuid.UUID      `json:"pet_id"`
	Content     string         `json:"content"`
	ContentType string         `json:"content_type"`
	ContentHash string         `json:"content_hash"`
	Metadata    map[string]any `json:"metadata"`
	Category    Category       `json:"category"`
	Tags        []string       `json:"tags"`
	CreatedAt   time.Time      `json:"created_at"`

	// Populated by reads that compose the full instance.
	Knowledge []Knowledge `json:"knowledge,omitempty"`
	Images    []Image     `json:"images,omitempty"`
}

// Knowledge is a reference document attached to a DataInstance. Immutable
// after creation. Embedding is nil until computed; rows without an embedding
// are simply invisible to semantic search.
type Knowledge struct {
	ID          uuid.UUID      `json:"id"`
	InstanceID  uuid.UUID      `json:"datainstance_id"`
	URL         string         `json:"url,omitempty"`
	Content     string         `json:"content,omitempty"`
	Title       string         `json:"title,omitempty"`
	ContentHash string         `json:"content_hash,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	Embedding   []float32      `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Image is an image reference attached to a DataInstance. Immutable after
// creation.
type Image struct {
	ID         uuid.UUID      `json:"id"`
	InstanceID uuid.UUID      `json:"datainstance_id"`
	ImageURL   string         `json:"image_url"`
	AltText    string         `json:"alt_text,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewDataInstance builds a DataInstance with defaults applied: empty metadata
// map when nil, category "general" when zero, empty tag list when nil, and
// the content hash computed. The caller validates the category string via
// ParseCategory before constructing.
func NewDataInstance(petID uuid.UUID, content, contentType string, metadata map[string]any, category Category, tags []string) DataInstance {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if category == "" {
		category = CategoryGeneral
	}
	if tags == nil {
		tags = []string{}
	}
	return DataInstance{
		PetID:       petID,
		Content:     content,
		ContentType: contentType,
		ContentHash: HashContent(content),
		Metadata:    metadata,
		Category:    category,
		Tags:        tags,
	}
}

// NewKnowledge builds a Knowledge value, enforcing the one-of-two invariant:
// at least one of URL or non-blank content must be present. This is the only
// place the rule lives.
func NewKnowledge(url, content, title string, metadata map[string]any) (Knowledge, error) {
	if url == "" && strings.TrimSpace(content) == "" {
		return Knowledge{}, ErrInvalidKnowledge
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	k := Knowledge{
		URL:      url,
		Content:  content,
		Title:    title,
		Metadata: metadata,
	}
	if content != "" {
		k.ContentHash = HashContent(content)
	}
	return k, nil
}

// NewImage builds an Image value. The image URL is required; alt text and
// metadata are optional.
func NewImage(imageURL, altText string, metadata map[string]any) (Image, error) {
	if imageURL == "" {
		return Image{}, ErrMissingImageURL
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Image{
		ImageURL: imageURL,
		AltText:  altText,
		Metadata: metadata,
	}, nil
}

// HashContent returns the first 16 hex characters of the SHA-256 of content.
// Stored alongside content for cheap change detection.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
