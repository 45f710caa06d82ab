package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/petdex/petdex/internal/entity"
)

// CreatePetParams describes a new pet.
type CreatePetParams struct {
	OwnerWallet string `json:"owner_wallet"`
	Name        string `json:"name"`
	Rarity      string `json:"rarity"`
}

// KnowledgeParams describes one knowledge item to attach. At least one of
// URL or non-blank Content is required; validation happens before any row
// is written.
type KnowledgeParams struct {
	URL      string         `json:"url"`
	Content  string         `json:"content"`
	Title    string         `json:"title"`
	Metadata map[string]any `json:"metadata"`
}

// ImageParams describes one image to attach. ImageURL is required.
type ImageParams struct {
	ImageURL string         `json:"image_url"`
	AltText  string         `json:"alt_text"`
	Metadata map[string]any `json:"metadata"`
}

// CreateInstanceParams describes a data instance together with its initial
// knowledge and images, written atomically.
type CreateInstanceParams struct {
	PetID       uuid.UUID         `json:"-"`
	Content     string            `json:"content"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]any    `json:"metadata"`
	Category    string            `json:"category"`
	Tags        []string          `json:"tags"`
	Knowledge   []KnowledgeParams `json:"knowledge"`
	Images      []ImageParams     `json:"images"`
}

// Export is the full content tree of one pet, suitable for serialization.
type Export struct {
	Pet        entity.Pet            `json:"pet"`
	Instances  []entity.DataInstance `json:"instances"`
	ExportedAt time.Time             `json:"exported_at"`
}

// Statistics aggregates content counts across all pets of one owner.
type Statistics struct {
	OwnerWallet    string       `json:"owner_wallet"`
	PetCount       int          `json:"pet_count"`
	InstanceCount  int          `json:"instance_count"`
	KnowledgeCount int          `json:"knowledge_count"`
	ImageCount     int          `json:"image_count"`
	Pets           []entity.Pet `json:"pets"`
}
