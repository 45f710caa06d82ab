package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExportPetData returns the full content tree of one pet: the pet itself and
// every instance with its knowledge and images populated. The pet must
// exist.
func (s *Store) ExportPetData(ctx context.Context, petID uuid.UUID) (Export, error) {
	pet, err := s.GetPet(ctx, petID)
	if err != nil {
		return Export{}, err
	}

	// The export is unbounded on purpose: it is the pet's complete tree.
	instances, err := s.GetPetInstances(ctx, petID, MaxListLimit, 0)
	if err != nil {
		return Export{}, err
	}

	for i := range instances {
		if instances[i].Knowledge, err = s.listKnowledge(ctx, instances[i].ID); err != nil {
			return Export{}, err
		}
		if instances[i].Images, err = s.listImages(ctx, instances[i].ID); err != nil {
			return Export{}, err
		}
	}

	return Export{
		Pet:        pet,
		Instances:  instances,
		ExportedAt: time.Now().UTC(),
	}, nil
}

// GetUserStatistics aggregates content counts across every pet owned by the
// given wallet. An owner with no pets gets zero counts, not an error.
func (s *Store) GetUserStatistics(ctx context.Context, ownerWallet string) (Statistics, error) {
	pets, err := s.GetUserPets(ctx, ownerWallet)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		OwnerWallet: ownerWallet,
		PetCount:    len(pets),
		Pets:        pets,
	}

	row := s.pool.QueryRow(ctx, `
		SELECT
			count(DISTINCT d.id),
			count(DISTINCT k.id),
			count(DISTINCT i.id)
		FROM pets p
		LEFT JOIN datainstances d ON d.pet_id = p.id
		LEFT JOIN knowledge k ON k.datainstance_id = d.id
		LEFT JOIN images i ON i.datainstance_id = d.id
		WHERE p.owner_wallet = $1`,
		ownerWallet)

	if err := row.Scan(&stats.InstanceCount, &stats.KnowledgeCount, &stats.ImageCount); err != nil {
		return Statistics{}, fmt.Errorf("aggregating statistics for %s: %w", ownerWallet, err)
	}

	return stats, nil
}
