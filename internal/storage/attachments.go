package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/petdex/petdex/internal/entity"
)

const knowledgeColumns = `id, datainstance_id, url, content, title, content_hash, metadata, created_at`

func (s *Store) scanKnowledge(row pgx.Row) (entity.Knowledge, error) {
	var k entity.Knowledge
	var url, content, title, contentHash pgtype.Text
	var metadata []byte
	var createdAt pgtype.Timestamptz
	err := row.Scan(&k.ID, &k.InstanceID, &url, &content, &title, &contentHash,
		&metadata, &createdAt)
	if err != nil {
		return entity.Knowledge{}, err
	}
	k.URL = textValue(url)
	k.Content = textValue(content)
	k.Title = textValue(title)
	k.ContentHash = textValue(contentHash)
	k.Metadata = s.parseMetadata(metadata, "knowledge", k.ID)
	k.CreatedAt = timestamp(createdAt)
	return k, nil
}

func (s *Store) scanImage(row pgx.Row) (entity.Image, error) {
	var img entity.Image
	var altText pgtype.Text
	var metadata []byte
	var createdAt pgtype.Timestamptz
	err := row.Scan(&img.ID, &img.InstanceID, &img.ImageURL, &altText, &metadata, &createdAt)
	if err != nil {
		return entity.Image{}, err
	}
	img.AltText = textValue(altText)
	img.Metadata = s.parseMetadata(metadata, "image", img.ID)
	img.CreatedAt = timestamp(createdAt)
	return img, nil
}

// insertKnowledge writes one knowledge row inside a transaction, embedding
// its content best-effort.
func (s *Store) insertKnowledge(ctx context.Context, tx pgx.Tx, instanceID uuid.UUID, k entity.Knowledge) (entity.Knowledge, error) {
	metadata, err := marshalMetadata(k.Metadata)
	if err != nil {
		return entity.Knowledge{}, fmt.Errorf("marshaling knowledge metadata: %w", err)
	}

	embedding := s.embedContent(ctx, k.Content)

	row := tx.QueryRow(ctx, `
		INSERT INTO knowledge (datainstance_id, url, content, title, content_hash, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		instanceID, nullText(k.URL), nullText(k.Content), nullText(k.Title),
		nullText(k.ContentHash), metadata, embedding)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&k.ID, &createdAt); err != nil {
		return entity.Knowledge{}, fmt.Errorf("inserting knowledge: %w", err)
	}
	k.InstanceID = instanceID
	k.CreatedAt = timestamp(createdAt)
	return k, nil
}

// insertImage writes one image row inside a transaction.
func (s *Store) insertImage(ctx context.Context, tx pgx.Tx, instanceID uuid.UUID, img entity.Image) (entity.Image, error) {
	metadata, err := marshalMetadata(img.Metadata)
	if err != nil {
		return entity.Image{}, fmt.Errorf("marshaling image metadata: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO images (datainstance_id, image_url, alt_text, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		instanceID, img.ImageURL, nullText(img.AltText), metadata)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&img.ID, &createdAt); err != nil {
		return entity.Image{}, fmt.Errorf("inserting image: %w", err)
	}
	img.InstanceID = instanceID
	img.CreatedAt = timestamp(createdAt)
	return img, nil
}

// BulkAddKnowledge attaches knowledge items to an existing instance in a
// single transaction. Validation is all-or-nothing: one invalid item means
// no rows are written. The instance must exist (ErrNotFound otherwise).
func (s *Store) BulkAddKnowledge(ctx context.Context, instanceID uuid.UUID, items []KnowledgeParams) ([]entity.Knowledge, error) {
	knowledge := make([]entity.Knowledge, 0, len(items))
	for _, kp := range items {
		k, err := entity.NewKnowledge(kp.URL, kp.Content, kp.Title, kp.Metadata)
		if err != nil {
			return nil, err
		}
		knowledge = append(knowledge, k)
	}

	if err := s.instanceExists(ctx, instanceID); err != nil {
		return nil, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback()

	saved := make([]entity.Knowledge, 0, len(knowledge))
	for _, k := range knowledge {
		sk, err := s.insertKnowledge(ctx, tx, instanceID, k)
		if err != nil {
			return nil, err
		}
		saved = append(saved, sk)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing knowledge batch: %w", err)
	}

	s.logger.Debug("added knowledge batch", "instance_id", instanceID, "count", len(saved))
	return saved, nil
}

// BulkAddImages attaches images to an existing instance in a single
// transaction, with the same all-or-nothing validation as BulkAddKnowledge.
func (s *Store) BulkAddImages(ctx context.Context, instanceID uuid.UUID, items []ImageParams) ([]entity.Image, error) {
	images := make([]entity.Image, 0, len(items))
	for _, ip := range items {
		img, err := entity.NewImage(ip.ImageURL, ip.AltText, ip.Metadata)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	if err := s.instanceExists(ctx, instanceID); err != nil {
		return nil, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback()

	saved := make([]entity.Image, 0, len(images))
	for _, img := range images {
		si, err := s.insertImage(ctx, tx, instanceID, img)
		if err != nil {
			return nil, err
		}
		saved = append(saved, si)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing image batch: %w", err)
	}

	s.logger.Debug("added image batch", "instance_id", instanceID, "count", len(saved))
	return saved, nil
}

// GetInstanceKnowledge lists the knowledge attached to an instance, newest
// first. The instance must exist.
func (s *Store) GetInstanceKnowledge(ctx context.Context, instanceID uuid.UUID) ([]entity.Knowledge, error) {
	if err := s.instanceExists(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.listKnowledge(ctx, instanceID)
}

// GetInstanceImages lists the images attached to an instance, newest first.
// The instance must exist.
func (s *Store) GetInstanceImages(ctx context.Context, instanceID uuid.UUID) ([]entity.Image, error) {
	if err := s.instanceExists(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.listImages(ctx, instanceID)
}

func (s *Store) listKnowledge(ctx context.Context, instanceID uuid.UUID) ([]entity.Knowledge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+knowledgeColumns+`
		FROM knowledge
		WHERE datainstance_id = $1
		ORDER BY created_at DESC`,
		instanceID)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge for instance %s: %w", instanceID, err)
	}
	defer rows.Close()

	knowledge := []entity.Knowledge{}
	for rows.Next() {
		k, err := s.scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning knowledge: %w", err)
		}
		knowledge = append(knowledge, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing knowledge for instance %s: %w", instanceID, err)
	}
	return knowledge, nil
}

func (s *Store) listImages(ctx context.Context, instanceID uuid.UUID) ([]entity.Image, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, datainstance_id, image_url, alt_text, metadata, created_at
		FROM images
		WHERE datainstance_id = $1
		ORDER BY created_at DESC`,
		instanceID)
	if err != nil {
		return nil, fmt.Errorf("listing images for instance %s: %w", instanceID, err)
	}
	defer rows.Close()

	images := []entity.Image{}
	for rows.Next() {
		img, err := s.scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing images for instance %s: %w", instanceID, err)
	}
	return images, nil
}

// GetPetKnowledge lists knowledge across all of a pet's instances, newest
// first, with the same limit clamping as GetPetInstances. The pet must
// exist.
func (s *Store) GetPetKnowledge(ctx context.Context, petID uuid.UUID, limit int) ([]entity.Knowledge, error) {
	limit, _ = clampPage(limit, 0)

	if err := s.petExists(ctx, petID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT k.id, k.datainstance_id, k.url, k.content, k.title, k.content_hash, k.metadata, k.created_at
		FROM knowledge k
		JOIN datainstances d ON d.id = k.datainstance_id
		WHERE d.pet_id = $1
		ORDER BY k.created_at DESC
		LIMIT $2`,
		petID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge for pet %s: %w", petID, err)
	}
	defer rows.Close()

	knowledge := []entity.Knowledge{}
	for rows.Next() {
		k, err := s.scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning knowledge: %w", err)
		}
		knowledge = append(knowledge, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing knowledge for pet %s: %w", petID, err)
	}
	return knowledge, nil
}
