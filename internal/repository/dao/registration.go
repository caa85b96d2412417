package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrRegistrationNotFound     = errors.New("registration not found")
	ErrRegistrationNumberExists = errors.New("registration number already exists")
)

type AppliedDiscount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type Payment struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	PaidDate       *time.Time      `json:"paid_date,omitempty"`
	Status         string          `json:"status"`
	Note           *string         `json:"note,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Note      *string   `json:"note,omitempty"`
}

type Registration struct {
	ID                 string `gorm:"primaryKey;type:varchar(36)"`
	EventID            string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_registrations_event_number,priority:1"`
	ParticipantID      string `gorm:"not null"`
	PrimaryParentID    string `gorm:"not null"`
	SecondaryParentID  *string
	RegistrationNumber string `gorm:"not null;uniqueIndex:idx_registrations_event_number,priority:2"`
	ParticipantCount   int    `gorm:"not null;default:1"`
	CouponCode         string

	TotalPrice       decimal.Decimal                      `gorm:"type:numeric(12,2);not null"`
	AmountPaid       decimal.Decimal                      `gorm:"type:numeric(12,2);not null;default:0"`
	AppliedDiscounts datatypes.JSONSlice[AppliedDiscount] `gorm:"type:jsonb"`
	Payments         datatypes.JSONSlice[Payment]         `gorm:"type:jsonb"`

	Status           string `gorm:"not null;index"`
	AwaitingApproval bool   `gorm:"not null;default:false"`
	InternalNote     string
	ParentNote       string
	ChangeHistory    datatypes.JSONSlice[HistoryEntry] `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Registration) TableName() string {
	return "registrations"
}

type RegistrationDAO struct {
	db *gorm.DB
}

func NewRegistrationDAO(db *gorm.DB) *RegistrationDAO {
	return &RegistrationDAO{
		db: db,
	}
}

func (d *RegistrationDAO) Insert(ctx context.Context, registration Registration) (Registration, error) {
	result := d.db.WithContext(ctx).Create(&registration)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) &&
			err.Code == pgerrcode.UniqueViolation &&
			strings.Contains(err.Message, `"idx_registrations_event_number"`) {
			return Registration{}, ErrRegistrationNumberExists
		}

		return Registration{}, result.Error
	}

	return registration, nil
}

func (d *RegistrationDAO) FindByID(ctx context.Context, id string) (Registration, error) {
	var registration Registration

	result := d.db.WithContext(ctx).First(&registration, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return registration, nil
}

// Update rewrites the whole row; the last write wins.
func (d *RegistrationDAO) Update(ctx context.Context, registration Registration) (Registration, error) {
	result := d.db.WithContext(ctx).
		Model(&Registration{ID: registration.ID}).
		Select("*").
		Omit("created_at").
		Updates(&registration)
	if result.Error != nil {
		return Registration{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Registration{}, ErrRegistrationNotFound
	}

	return registration, nil
}

// FindByEventID lists the registrations of an event in creation order. No
// statuses match every status.
func (d *RegistrationDAO) FindByEventID(ctx context.Context, eventID string, statuses []string) ([]Registration, error) {
	var registrations []Registration

	query := d.db.WithContext(ctx).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	result := query.Order("created_at ASC").Find(&registrations)
	if result.Error != nil {
		return nil, result.Error
	}

	return registrations, nil
}

// FindByStatuses lists registrations across events, used by the reminder job.
func (d *RegistrationDAO) FindByStatuses(ctx context.Context, statuses []string) ([]Registration, error) {
	var registrations []Registration

	result := d.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at ASC").Find(&registrations)
	if result.Error != nil {
		return nil, result.Error
	}

	return registrations, nil
}

// SumParticipants adds up the participant counts of the event registrations
// in the given statuses.
func (d *RegistrationDAO) SumParticipants(ctx context.Context, eventID string, statuses []string) (int, error) {
	var total int64

	result := d.db.WithContext(ctx).
		Model(&Registration{}).
		Where("event_id = ? AND status IN ?", eventID, statuses).
		Select("COALESCE(SUM(participant_count), 0)").
		Scan(&total)
	if result.Error != nil {
		return 0, result.Error
	}

	return int(total), nil
}

func (d *RegistrationDAO) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var count int64

	result := d.db.WithContext(ctx).Model(&Registration{}).Where("event_id = ?", eventID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return int(count), nil
}
