package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the storefront account record. Authentication lives in an external
// collaborator; checkout only reads the stored processor customer reference
// and writes it back best-effort.
type User struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string    `gorm:"column:email;not null;uniqueIndex"`
	Name             string    `gorm:"column:name;not null;default:''"`
	StripeCustomerID *string   `gorm:"column:stripe_customer_id"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
