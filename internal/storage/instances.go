package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/petdex/petdex/internal/entity"
)

const instanceColumns = `id, pet_id, content, content_type, content_hash, metadata, category, tags, created_at`

func (s *Store) scanInstance(row pgx.Row) (entity.DataInstance, error) {
	var inst entity.DataInstance
	var metadata []byte
	var category string
	var createdAt pgtype.Timestamptz
	err := row.Scan(&inst.ID, &inst.PetID, &inst.Content, &inst.ContentType,
		&inst.ContentHash, &metadata, &category, &inst.Tags, &createdAt)
	if err != nil {
		return entity.DataInstance{}, err
	}
	inst.Metadata = s.parseMetadata(metadata, "datainstance", inst.ID)
	inst.Category = entity.Category(category)
	inst.CreatedAt = timestamp(createdAt)
	if inst.Tags == nil {
		inst.Tags = []string{}
	}
	return inst, nil
}

// CreateCompleteDataInstance writes a data instance together with its
// knowledge and images in a single transaction. Every knowledge and image
// item is validated before anything is written, so an invalid item in the
// batch means no rows at all.
//
// When an embedder is configured, knowledge content is embedded during the
// write; an embedding failure does not fail the write, the row is stored
// without a vector and stays invisible to semantic search.
func (s *Store) CreateCompleteDataInstance(ctx context.Context, params CreateInstanceParams) (entity.DataInstance, error) {
	category, err := entity.ParseCategory(params.Category)
	if err != nil {
		return entity.DataInstance{}, err
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = "text"
	}

	inst := entity.NewDataInstance(params.PetID, params.Content, contentType,
		params.Metadata, category, params.Tags)

	// Validate the whole batch up front.
	knowledge := make([]entity.Knowledge, 0, len(params.Knowledge))
	for _, kp := range params.Knowledge {
		k, err := entity.NewKnowledge(kp.URL, kp.Content, kp.Title, kp.Metadata)
		if err != nil {
			return entity.DataInstance{}, err
		}
		knowledge = append(knowledge, k)
	}
	images := make([]entity.Image, 0, len(params.Images))
	for _, ip := range params.Images {
		img, err := entity.NewImage(ip.ImageURL, ip.AltText, ip.Metadata)
		if err != nil {
			return entity.DataInstance{}, err
		}
		images = append(images, img)
	}

	if err := s.petExists(ctx, params.PetID); err != nil {
		return entity.DataInstance{}, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return entity.DataInstance{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback()

	metadata, err := marshalMetadata(inst.Metadata)
	if err != nil {
		return entity.DataInstance{}, fmt.Errorf("marshaling instance metadata: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO datainstances (pet_id, content, content_type, content_hash, metadata, category, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		inst.PetID, inst.Content, inst.ContentType, inst.ContentHash,
		metadata, inst.Category.String(), inst.Tags)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&inst.ID, &createdAt); err != nil {
		return entity.DataInstance{}, fmt.Errorf("inserting data instance: %w", err)
	}
	inst.CreatedAt = timestamp(createdAt)

	inst.Knowledge = make([]entity.Knowledge, 0, len(knowledge))
	for _, k := range knowledge {
		saved, err := s.insertKnowledge(ctx, tx, inst.ID, k)
		if err != nil {
			return entity.DataInstance{}, err
		}
		inst.Knowledge = append(inst.Knowledge, saved)
	}

	inst.Images = make([]entity.Image, 0, len(images))
	for _, img := range images {
		saved, err := s.insertImage(ctx, tx, inst.ID, img)
		if err != nil {
			return entity.DataInstance{}, err
		}
		inst.Images = append(inst.Images, saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return entity.DataInstance{}, fmt.Errorf("committing data instance: %w", err)
	}

	s.logger.Debug("created data instance",
		"instance_id", inst.ID,
		"pet_id", inst.PetID,
		"knowledge", len(inst.Knowledge),
		"images", len(inst.Images))
	return inst, nil
}

// GetDataInstanceWithContent returns an instance with its knowledge and
// images populated. A missing instance yields ErrNotFound.
func (s *Store) GetDataInstanceWithContent(ctx context.Context, instanceID uuid.UUID) (entity.DataInstance, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM datainstances WHERE id = $1`, instanceID)

	inst, err := s.scanInstance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.DataInstance{}, fmt.Errorf("data instance %s: %w", instanceID, ErrNotFound)
		}
		return entity.DataInstance{}, fmt.Errorf("getting data instance %s: %w", instanceID, err)
	}

	if inst.Knowledge, err = s.listKnowledge(ctx, instanceID); err != nil {
		return entity.DataInstance{}, err
	}
	if inst.Images, err = s.listImages(ctx, instanceID); err != nil {
		return entity.DataInstance{}, err
	}
	return inst, nil
}

// GetPetInstances lists a pet's data instances, newest first. The limit is
// clamped to [1, MaxListLimit] (default DefaultListLimit); negative offsets
// are treated as zero. A missing pet yields ErrNotFound.
func (s *Store) GetPetInstances(ctx context.Context, petID uuid.UUID, limit, offset int) ([]entity.DataInstance, error) {
	limit, offset = clampPage(limit, offset)

	if err := s.petExists(ctx, petID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+instanceColumns+`
		FROM datainstances
		WHERE pet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		petID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing instances for pet %s: %w", petID, err)
	}
	defer rows.Close()

	instances := []entity.DataInstance{}
	for rows.Next() {
		inst, err := s.scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning data instance: %w", err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing instances for pet %s: %w", petID, err)
	}
	return instances, nil
}

// petExists verifies a pet row exists, returning ErrNotFound otherwise.
func (s *Store) petExists(ctx context.Context, petID uuid.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pets WHERE id = $1)`, petID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking pet %s: %w", petID, err)
	}
	if !exists {
		return fmt.Errorf("pet %s: %w", petID, ErrNotFound)
	}
	return nil
}

// instanceExists verifies an instance row exists, returning ErrNotFound
// otherwise.
func (s *Store) instanceExists(ctx context.Context, instanceID uuid.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM datainstances WHERE id = $1)`, instanceID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking data instance %s: %w", instanceID, err)
	}
	if !exists {
		return fmt.Errorf("data instance %s: %w", instanceID, ErrNotFound)
	}
	return nil
}

// embedContent computes the embedding for knowledge content. Failures are
// logged and reported as a nil vector; the caller stores NULL.
func (s *Store) embedContent(ctx context.Context, content string) *pgvector.Vector {
	if s.embedder == nil || strings.TrimSpace(content) == "" {
		return nil
	}
	values, err := s.embedder.GetEmbedding(ctx, content)
	if err != nil {
		s.logger.Warn("embedding knowledge content failed, storing without vector", "error", err)
		return nil
	}
	if len(values) == 0 {
		s.logger.Warn("embedder returned empty vector, storing without vector")
		return nil
	}
	vec := pgvector.NewVector(values)
	return &vec
}
