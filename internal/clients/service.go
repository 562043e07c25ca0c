package clients

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
	"github.com/nutrivibes/api/internal/storage"
)

var ErrNotFound = errors.New("client not found")

// WeekReprojector lets a timing update immediately re-label the slots
// of any weeks open in editing sessions.
type WeekReprojector interface {
	ReprojectOpenWeeks(clientID uuid.UUID, timings []mealtimings.Timing)
}

// Service manages the dietician's client roster and the per-client
// meal timing registry.
type Service struct {
	storage     storage.ClientsStorage
	timings     *mealtimings.Service
	reprojector WeekReprojector
}

func NewService(st storage.ClientsStorage, timings *mealtimings.Service, reprojector WeekReprojector) *Service {
	return &Service{storage: st, timings: timings, reprojector: reprojector}
}

func (s *Service) List(ctx context.Context, dieticianID uuid.UUID, includeArchived bool) ([]storage.Client, error) {
	return s.storage.ListClients(ctx, dieticianID, includeArchived)
}

// get loads a client and enforces roster ownership.
func (s *Service) get(ctx context.Context, dieticianID, clientID uuid.UUID) (*storage.Client, error) {
	c, err := s.storage.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if c == nil || c.DieticianID != dieticianID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, dieticianID, clientID uuid.UUID) (*storage.Client, error) {
	return s.get(ctx, dieticianID, clientID)
}

// Create adds a roster entry and seeds the default seven-meal timing
// template so the first diet plan can be laid out immediately.
func (s *Service) Create(ctx context.Context, dieticianID uuid.UUID, req UpsertClientRequest) (*storage.Client, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	client := &storage.Client{
		DieticianID: dieticianID,
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		BirthDate:   req.BirthDate,
		Sex:         req.Sex,
		HeightCm:    req.HeightCm,
		Goal:        req.Goal,
		Allergies:   req.Allergies,
		Notes:       req.Notes,
	}
	if err := s.storage.CreateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	if err := s.timings.SeedDefaults(ctx, client.ID); err != nil {
		// The client exists; a missing template is repairable via the
		// timings endpoint, so don't fail the create.
		log.Printf("WARN: seed default timings for client=%s failed: %v", client.ID, err)
	}
	return client, nil
}

func (s *Service) Update(ctx context.Context, dieticianID, clientID uuid.UUID, req UpsertClientRequest) (*storage.Client, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	client, err := s.get(ctx, dieticianID, clientID)
	if err != nil {
		return nil, err
	}

	client.FullName = req.FullName
	client.Email = req.Email
	client.Phone = req.Phone
	client.BirthDate = req.BirthDate
	client.Sex = req.Sex
	client.HeightCm = req.HeightCm
	client.Goal = req.Goal
	client.Allergies = req.Allergies
	client.Notes = req.Notes

	if err := s.storage.UpdateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return client, nil
}

func (s *Service) Archive(ctx context.Context, dieticianID, clientID uuid.UUID) error {
	if _, err := s.get(ctx, dieticianID, clientID); err != nil {
		return err
	}
	if err := s.storage.ArchiveClient(ctx, clientID); err != nil {
		return fmt.Errorf("archive client: %w", err)
	}
	return nil
}

// GetTimings returns the client's timing registry.
func (s *Service) GetTimings(ctx context.Context, dieticianID, clientID uuid.UUID) ([]mealtimings.Timing, error) {
	if _, err := s.get(ctx, dieticianID, clientID); err != nil {
		return nil, err
	}
	return s.timings.Get(ctx, clientID)
}

// UpdateTimings replaces the registry and immediately re-projects any
// weeks open in editing sessions against the new structure.
func (s *Service) UpdateTimings(ctx context.Context, dieticianID, clientID uuid.UUID, timings []mealtimings.Timing) ([]mealtimings.Timing, error) {
	if _, err := s.get(ctx, dieticianID, clientID); err != nil {
		return nil, err
	}
	updated, err := s.timings.Replace(ctx, clientID, timings)
	if err != nil {
		return nil, err
	}
	if s.reprojector != nil {
		s.reprojector.ReprojectOpenWeeks(clientID, updated)
	}
	return updated, nil
}
