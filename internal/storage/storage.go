package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by mutating operations when the target row
// does not exist. Read operations return nil instead.
var ErrNotFound = errors.New("not found")

// Storage bundles every per-concern interface. Both the memory and
// Postgres backends implement all of them on a single struct.
type Storage interface {
	ClientsStorage
	MealTimingsStorage
	DietPlansStorage
	WeekBufferStorage
	TrackingStorage
	SubscriptionsStorage
	FollowupsStorage
	NotificationsStorage
}

// Client represents a coached client on a dietician's roster.
type Client struct {
	ID          uuid.UUID
	DieticianID uuid.UUID
	FullName    string
	Email       string
	Phone       *string
	BirthDate   *string // YYYY-MM-DD
	Sex         *string // "male" or "female"
	HeightCm    *int
	Goal        *string // free-text counselling goal
	Allergies   *string
	Notes       *string
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClientsStorage manages the dietician's client roster.
type ClientsStorage interface {
	// ListClients returns all clients of a dietician (optionally including archived).
	ListClients(ctx context.Context, dieticianID uuid.UUID, includeArchived bool) ([]Client, error)

	// GetClient returns a client by ID.
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)

	// CreateClient creates a new client.
	CreateClient(ctx context.Context, client *Client) error

	// UpdateClient updates an existing client.
	UpdateClient(ctx context.Context, client *Client) error

	// ArchiveClient soft-deletes a client.
	ArchiveClient(ctx context.Context, id uuid.UUID) error

	// Close closes the connection (for Postgres).
	Close() error
}

// MealTimingRow is a single meal timing entry of a client.
type MealTimingRow struct {
	ClientID   uuid.UUID
	MealNumber int    // 1-based position
	Time       string // HH:MM, 24h
	UpdatedAt  time.Time
}

// MealTimingsStorage manages per-client meal timing lists.
type MealTimingsStorage interface {
	// GetMealTimings returns the client's timings ordered by meal number.
	GetMealTimings(ctx context.Context, clientID uuid.UUID) ([]MealTimingRow, error)

	// ReplaceMealTimings atomically replaces the client's timing list.
	ReplaceMealTimings(ctx context.Context, clientID uuid.UUID, timings []MealTimingRow) error
}

// WeekRecord is a persisted weekly diet plan. Days holds the full
// seven-day grid as a JSON payload; Revision is a monotonic write counter.
type WeekRecord struct {
	ID          uuid.UUID
	DieticianID uuid.UUID
	ClientID    uuid.UUID
	StartDate   string // YYYY-MM-DD, always a Monday
	Days        []byte // JSON
	Revision    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DietPlansStorage manages weekly diet plans keyed by (client, week start).
type DietPlansStorage interface {
	// GetWeek returns the stored week for a client, or nil if none exists.
	GetWeek(ctx context.Context, clientID uuid.UUID, startDate string) (*WeekRecord, error)

	// UpsertWeek writes a week guarded by revision: the write is applied only
	// when rec.Revision is strictly greater than the stored one (or no row
	// exists). Returns the authoritative revision after the call and whether
	// the write was applied.
	UpsertWeek(ctx context.Context, rec *WeekRecord) (int64, bool, error)

	// ListWeeks returns stored week records of a client in a date range
	// (inclusive, by start date).
	ListWeeks(ctx context.Context, clientID uuid.UUID, from, to string) ([]WeekRecord, error)
}

// WeekBufferRow is a dietician's copied-week buffer (one per dietician).
type WeekBufferRow struct {
	DieticianID uuid.UUID
	Days        []byte // JSON, statuses already stripped
	CopiedFrom  string // YYYY-MM-DD source week start
	CreatedAt   time.Time
}

// WeekBufferStorage manages the whole-week copy buffer.
type WeekBufferStorage interface {
	// GetWeekBuffer returns the dietician's buffer, or nil if empty.
	GetWeekBuffer(ctx context.Context, dieticianID uuid.UUID) (*WeekBufferRow, error)

	// PutWeekBuffer replaces the dietician's buffer.
	PutWeekBuffer(ctx context.Context, row *WeekBufferRow) error

	// ClearWeekBuffer drops the dietician's buffer.
	ClearWeekBuffer(ctx context.Context, dieticianID uuid.UUID) error
}

// WeightEntry is a client's weight log record.
type WeightEntry struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Date      string // YYYY-MM-DD
	WeightKg  float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WaterEntry is a single water intake record.
type WaterEntry struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	TakenAt   time.Time
	AmountMl  int
	CreatedAt time.Time
}

// MealLogEntry is a client's confirmation that a planned meal was eaten.
type MealLogEntry struct {
	ID         uuid.UUID
	ClientID   uuid.UUID
	Date       string // YYYY-MM-DD
	MealNumber int
	Status     string // "eaten" or "skipped"
	Note       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MeasurementEntry is a body measurement snapshot, optionally with a
// progress photo stored in blob storage.
type MeasurementEntry struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Date      string // YYYY-MM-DD
	ChestCm   *float64
	WaistCm   *float64
	HipsCm    *float64
	PhotoKey  *string // blob object key
	PhotoMime *string
	PhotoSize int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CycleEntry is a menstrual cycle log record.
type CycleEntry struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	StartDate string  // YYYY-MM-DD
	EndDate   *string // YYYY-MM-DD, nil while ongoing
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrackingStorage manages client self-tracking logs.
type TrackingStorage interface {
	// UpsertWeight saves a weight entry (upsert by client_id, date).
	UpsertWeight(ctx context.Context, entry *WeightEntry) error

	// ListWeights returns weight entries in a date range.
	ListWeights(ctx context.Context, clientID uuid.UUID, from, to string) ([]WeightEntry, error)

	// AddWater appends a water intake record.
	AddWater(ctx context.Context, entry *WaterEntry) error

	// GetWaterDaily returns the total water amount for a day.
	GetWaterDaily(ctx context.Context, clientID uuid.UUID, date string) (int, error)

	// UpsertMealLog saves a meal confirmation (upsert by client_id, date, meal_number).
	UpsertMealLog(ctx context.Context, entry *MealLogEntry) error

	// ListMealLogs returns meal confirmations for a day.
	ListMealLogs(ctx context.Context, clientID uuid.UUID, date string) ([]MealLogEntry, error)

	// CreateMeasurement saves a measurement entry.
	CreateMeasurement(ctx context.Context, entry *MeasurementEntry) error

	// ListMeasurements returns measurement entries in a date range.
	ListMeasurements(ctx context.Context, clientID uuid.UUID, from, to string) ([]MeasurementEntry, error)

	// GetMeasurement returns a measurement by ID.
	GetMeasurement(ctx context.Context, id uuid.UUID) (*MeasurementEntry, error)

	// UpsertCycle saves a cycle entry (upsert by client_id, start_date).
	UpsertCycle(ctx context.Context, entry *CycleEntry) error

	// ListCycles returns cycle entries in a date range (by start date).
	ListCycles(ctx context.Context, clientID uuid.UUID, from, to string) ([]CycleEntry, error)
}

// SubscriptionPackage is a purchasable coaching package.
type SubscriptionPackage struct {
	ID           uuid.UUID
	Name         string
	Description  string
	DurationDays int
	PriceCents   int64
	Currency     string // ISO 4217
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subscription lifecycle statuses.
const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

// Subscription is a client's purchased (or pending) package.
type Subscription struct {
	ID         uuid.UUID
	ClientID   uuid.UUID
	PackageID  uuid.UUID
	Status     string // pending, active, expired, cancelled
	OrderID    string // payment order reference
	PaymentURL *string
	StartsAt   *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SubscriptionsStorage manages packages and client subscriptions.
type SubscriptionsStorage interface {
	// ListPackages returns packages (optionally only active ones).
	ListPackages(ctx context.Context, onlyActive bool) ([]SubscriptionPackage, error)

	// GetPackage returns a package by ID.
	GetPackage(ctx context.Context, id uuid.UUID) (*SubscriptionPackage, error)

	// CreatePackage creates a package.
	CreatePackage(ctx context.Context, pkg *SubscriptionPackage) error

	// CreateSubscription creates a subscription record.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns a subscription by ID.
	GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// ListSubscriptions returns a client's subscriptions, newest first.
	ListSubscriptions(ctx context.Context, clientID uuid.UUID) ([]Subscription, error)

	// UpdateSubscriptionStatus transitions a subscription and sets the
	// activity window when moving to active.
	UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status string, startsAt, expiresAt *time.Time) error
}

// Followup statuses.
const (
	FollowupScheduled = "scheduled"
	FollowupCompleted = "completed"
	FollowupCancelled = "cancelled"
	FollowupNoShow    = "no_show"
)

// Followup is a scheduled counselling session between dietician and client.
type Followup struct {
	ID             uuid.UUID
	DieticianID    uuid.UUID
	ClientID       uuid.UUID
	ScheduledAt    time.Time
	Status         string // scheduled, completed, cancelled, no_show
	Note           *string
	ReminderSentAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FollowupsStorage manages follow-up sessions.
type FollowupsStorage interface {
	// CreateFollowup creates a follow-up.
	CreateFollowup(ctx context.Context, f *Followup) error

	// GetFollowup returns a follow-up by ID.
	GetFollowup(ctx context.Context, id uuid.UUID) (*Followup, error)

	// ListFollowups returns follow-ups of a dietician in a time range,
	// optionally for a single client.
	ListFollowups(ctx context.Context, dieticianID uuid.UUID, clientID *uuid.UUID, from, to time.Time) ([]Followup, error)

	// UpdateFollowup updates scheduling, status and note.
	UpdateFollowup(ctx context.Context, f *Followup) error

	// ListDueReminders returns scheduled follow-ups starting within the
	// window that have no reminder sent yet.
	ListDueReminders(ctx context.Context, until time.Time) ([]Followup, error)

	// MarkReminderSent records that a reminder went out.
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Notification is an inbox entry shown to a client.
type Notification struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Kind      string // diet_published, followup_due
	Title     string
	Body      string
	CreatedAt time.Time
	ReadAt    *time.Time
}

// NotificationsStorage manages the client inbox.
type NotificationsStorage interface {
	// CreateNotification creates an inbox entry.
	CreateNotification(ctx context.Context, n *Notification) error

	// ListNotifications returns a client's inbox entries, newest first.
	ListNotifications(ctx context.Context, clientID uuid.UUID, onlyUnread bool, limit, offset int) ([]Notification, error)

	// UnreadCount returns the number of unread entries.
	UnreadCount(ctx context.Context, clientID uuid.UUID) (int, error)

	// MarkRead marks the given entries as read (ownership checked).
	MarkRead(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) (int, error)

	// MarkAllRead marks all of a client's entries as read.
	MarkAllRead(ctx context.Context, clientID uuid.UUID) (int, error)
}
