package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/petdex/petdex/internal/entity"
)

const petColumns = `id, owner_wallet, name, rarity, social, trivia, science, code, trenches, streak, created_at`

func scanPet(row pgx.Row) (entity.Pet, error) {
	var p entity.Pet
	var createdAt pgtype.Timestamptz
	err := row.Scan(&p.ID, &p.OwnerWallet, &p.Name, &p.Rarity,
		&p.Social, &p.Trivia, &p.Science, &p.Code, &p.Trenches, &p.Streak,
		&createdAt)
	if err != nil {
		return entity.Pet{}, err
	}
	p.CreatedAt = timestamp(createdAt)
	return p, nil
}

// CreatePet inserts a new pet for the given owner. Pets exist independently
// of content; a freshly created pet has zero instances.
func (s *Store) CreatePet(ctx context.Context, params CreatePetParams) (entity.Pet, error) {
	rarity := params.Rarity
	if rarity == "" {
		rarity = "common"
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO pets (owner_wallet, name, rarity)
		VALUES ($1, $2, $3)
		RETURNING `+petColumns,
		params.OwnerWallet, params.Name, rarity)

	pet, err := scanPet(row)
	if err != nil {
		return entity.Pet{}, fmt.Errorf("creating pet: %w", err)
	}

	s.logger.Debug("created pet", "pet_id", pet.ID, "owner", pet.OwnerWallet)
	return pet, nil
}

// GetPet returns a single pet by ID. A missing pet yields ErrNotFound.
func (s *Store) GetPet(ctx context.Context, petID uuid.UUID) (entity.Pet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+petColumns+` FROM pets WHERE id = $1`, petID)

	pet, err := scanPet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Pet{}, fmt.Errorf("pet %s: %w", petID, ErrNotFound)
		}
		return entity.Pet{}, fmt.Errorf("getting pet %s: %w", petID, err)
	}
	return pet, nil
}

// GetUserPets returns every pet owned by the given wallet, newest first.
// An owner with no pets gets an empty slice, not an error.
func (s *Store) GetUserPets(ctx context.Context, ownerWallet string) ([]entity.Pet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+petColumns+` FROM pets WHERE owner_wallet = $1 ORDER BY created_at DESC`,
		ownerWallet)
	if err != nil {
		return nil, fmt.Errorf("listing pets for %s: %w", ownerWallet, err)
	}
	defer rows.Close()

	pets := []entity.Pet{}
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pet: %w", err)
		}
		pets = append(pets, pet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pets for %s: %w", ownerWallet, err)
	}
	return pets, nil
}
