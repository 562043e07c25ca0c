package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/blob"
	"github.com/nutrivibes/api/internal/storage"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrPhotoNotFound  = errors.New("photo not found")
)

// Service manages client self-tracking: weight, water, meal
// confirmations, body measurements with progress photos, cycle logs.
type Service struct {
	storage storage.TrackingStorage
	clients storage.ClientsStorage
	blobs   blob.Store

	maxWaterMlPerDay int
	presignTTL       int
}

func NewService(st storage.TrackingStorage, clients storage.ClientsStorage, blobs blob.Store, maxWaterMlPerDay, presignTTL int) *Service {
	return &Service{
		storage:          st,
		clients:          clients,
		blobs:            blobs,
		maxWaterMlPerDay: maxWaterMlPerDay,
		presignTTL:       presignTTL,
	}
}

// VerifyAccess checks that the caller may touch this client's logs: a
// client only their own, a dietician only clients on their roster.
func (s *Service) VerifyAccess(ctx context.Context, callerID, clientID uuid.UUID, callerIsClient bool) error {
	if callerIsClient {
		if callerID != clientID {
			return ErrClientNotFound
		}
		return nil
	}
	c, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("get client: %w", err)
	}
	if c == nil || c.DieticianID != callerID {
		return ErrClientNotFound
	}
	return nil
}

func validDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return nil
}

func (s *Service) LogWeight(ctx context.Context, clientID uuid.UUID, date string, weightKg float64) (*storage.WeightEntry, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if weightKg < 20 || weightKg > 400 {
		return nil, fmt.Errorf("%w: weight_kg out of range", ErrInvalidInput)
	}
	entry := &storage.WeightEntry{ClientID: clientID, Date: date, WeightKg: weightKg}
	if err := s.storage.UpsertWeight(ctx, entry); err != nil {
		return nil, fmt.Errorf("upsert weight: %w", err)
	}
	return entry, nil
}

func (s *Service) ListWeights(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.WeightEntry, error) {
	return s.storage.ListWeights(ctx, clientID, from, to)
}

func (s *Service) LogWater(ctx context.Context, clientID uuid.UUID, amountMl int) (int, error) {
	if amountMl <= 0 || amountMl > 3000 {
		return 0, fmt.Errorf("%w: amount_ml must be 1..3000", ErrInvalidInput)
	}
	today := time.Now().UTC().Format("2006-01-02")
	total, err := s.storage.GetWaterDaily(ctx, clientID, today)
	if err != nil {
		return 0, fmt.Errorf("get water daily: %w", err)
	}
	if s.maxWaterMlPerDay > 0 && total+amountMl > s.maxWaterMlPerDay {
		return 0, fmt.Errorf("%w: daily water limit exceeded", ErrInvalidInput)
	}

	entry := &storage.WaterEntry{ClientID: clientID, TakenAt: time.Now().UTC(), AmountMl: amountMl}
	if err := s.storage.AddWater(ctx, entry); err != nil {
		return 0, fmt.Errorf("add water: %w", err)
	}
	return total + amountMl, nil
}

func (s *Service) GetWaterDaily(ctx context.Context, clientID uuid.UUID, date string) (int, error) {
	if err := validDate(date); err != nil {
		return 0, err
	}
	return s.storage.GetWaterDaily(ctx, clientID, date)
}

func (s *Service) LogMeal(ctx context.Context, clientID uuid.UUID, date string, mealNumber int, status string, note *string) (*storage.MealLogEntry, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if mealNumber < 1 {
		return nil, fmt.Errorf("%w: meal_number must be >= 1", ErrInvalidInput)
	}
	if status != "eaten" && status != "skipped" {
		return nil, fmt.Errorf("%w: status must be eaten or skipped", ErrInvalidInput)
	}
	entry := &storage.MealLogEntry{ClientID: clientID, Date: date, MealNumber: mealNumber, Status: status, Note: note}
	if err := s.storage.UpsertMealLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("upsert meal log: %w", err)
	}
	return entry, nil
}

func (s *Service) ListMealLogs(ctx context.Context, clientID uuid.UUID, date string) ([]storage.MealLogEntry, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	return s.storage.ListMealLogs(ctx, clientID, date)
}

// AddMeasurement stores a measurement entry, uploading the progress
// photo to blob storage when one is attached.
func (s *Service) AddMeasurement(ctx context.Context, clientID uuid.UUID, date string, chest, waist, hips *float64, photo []byte, photoMime string) (*storage.MeasurementEntry, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if chest == nil && waist == nil && hips == nil && len(photo) == 0 {
		return nil, fmt.Errorf("%w: measurement is empty", ErrInvalidInput)
	}

	entry := &storage.MeasurementEntry{
		ID:       uuid.New(),
		ClientID: clientID,
		Date:     date,
		ChestCm:  chest,
		WaistCm:  waist,
		HipsCm:   hips,
	}

	if len(photo) > 0 {
		key := fmt.Sprintf("measurements/%s/%s", clientID, entry.ID)
		size, err := s.blobs.PutObject(ctx, key, photo, photoMime)
		if err != nil {
			return nil, fmt.Errorf("upload photo: %w", err)
		}
		entry.PhotoKey = &key
		entry.PhotoMime = &photoMime
		entry.PhotoSize = size
	}

	if err := s.storage.CreateMeasurement(ctx, entry); err != nil {
		if entry.PhotoKey != nil {
			_ = s.blobs.DeleteObject(ctx, *entry.PhotoKey)
		}
		return nil, fmt.Errorf("create measurement: %w", err)
	}
	return entry, nil
}

func (s *Service) ListMeasurements(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.MeasurementEntry, error) {
	return s.storage.ListMeasurements(ctx, clientID, from, to)
}

// PhotoURL returns a presigned URL for the photo, or empty when the
// store cannot presign (local mode) and the caller should proxy bytes.
func (s *Service) PhotoURL(ctx context.Context, clientID, measurementID uuid.UUID) (string, error) {
	entry, err := s.getPhotoEntry(ctx, clientID, measurementID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, *entry.PhotoKey, s.presignTTL)
}

// PhotoBytes serves the photo through the API (local blob mode).
func (s *Service) PhotoBytes(ctx context.Context, clientID, measurementID uuid.UUID) ([]byte, string, error) {
	entry, err := s.getPhotoEntry(ctx, clientID, measurementID)
	if err != nil {
		return nil, "", err
	}
	data, contentType, err := s.blobs.GetObject(ctx, *entry.PhotoKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, "", ErrPhotoNotFound
		}
		return nil, "", fmt.Errorf("get photo: %w", err)
	}
	if contentType == "" && entry.PhotoMime != nil {
		contentType = *entry.PhotoMime
	}
	return data, contentType, nil
}

func (s *Service) getPhotoEntry(ctx context.Context, clientID, measurementID uuid.UUID) (*storage.MeasurementEntry, error) {
	entry, err := s.storage.GetMeasurement(ctx, measurementID)
	if err != nil {
		return nil, fmt.Errorf("get measurement: %w", err)
	}
	if entry == nil || entry.ClientID != clientID {
		return nil, ErrPhotoNotFound
	}
	if entry.PhotoKey == nil {
		return nil, ErrPhotoNotFound
	}
	return entry, nil
}

func (s *Service) LogCycle(ctx context.Context, clientID uuid.UUID, startDate string, endDate, note *string) (*storage.CycleEntry, error) {
	if err := validDate(startDate); err != nil {
		return nil, err
	}
	if endDate != nil {
		if err := validDate(*endDate); err != nil {
			return nil, err
		}
		if *endDate < startDate {
			return nil, fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
		}
	}
	entry := &storage.CycleEntry{ClientID: clientID, StartDate: startDate, EndDate: endDate, Note: note}
	if err := s.storage.UpsertCycle(ctx, entry); err != nil {
		return nil, fmt.Errorf("upsert cycle: %w", err)
	}
	return entry, nil
}

func (s *Service) ListCycles(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.CycleEntry, error) {
	return s.storage.ListCycles(ctx, clientID, from, to)
}
