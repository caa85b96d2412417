package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("event not found")

type Condition struct {
	Kind            string     `json:"kind"`
	MinParticipants int        `json:"min_participants,omitempty"`
	Before          *time.Time `json:"before,omitempty"`
}

type Discount struct {
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	Condition Condition       `json:"condition"`
}

type DiscountCode struct {
	Code       string          `json:"code"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	ValidFrom  *time.Time      `json:"valid_from,omitempty"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	UsageLimit *int            `json:"usage_limit,omitempty"`
	UsageCount int             `json:"usage_count"`
}

type Event struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)"`
	Name             string    `gorm:"not null"`
	StartsAt         time.Time `gorm:"not null"`
	EndsAt           time.Time `gorm:"not null"`
	Capacity         int       `gorm:"not null;default:0"`
	RequiresApproval bool      `gorm:"not null;default:false"`

	BasePrice         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	AllowInstallments bool            `gorm:"not null;default:false"`
	DepositAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	DepositDueDate    *time.Time
	FinalDueDate      *time.Time
	Discounts         datatypes.JSONSlice[Discount]     `gorm:"type:jsonb"`
	DiscountCodes     datatypes.JSONSlice[DiscountCode] `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Event) TableName() string {
	return "events"
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id string) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).First(&event, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

// Update rewrites the whole row, nested documents included.
func (d *EventDAO) Update(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Model(&Event{ID: event.ID}).Select("*").Omit("created_at").Updates(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Event{}, ErrEventNotFound
	}

	return event, nil
}
