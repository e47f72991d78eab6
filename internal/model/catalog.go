package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prices go over the wire as JSON numbers; quoted strings are still accepted on input.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Category groups products in the catalog.
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Description *string   `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a sellable catalog item.
// CategoryID is nullable so that a category can be removed under the nullify delete policy.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:100;not null;index"`
	Description *string         `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	CategoryID  *uint           `json:"category_id" gorm:"index"`
	ImageURL    *string         `json:"image_url" gorm:"size:512"`
	IsAvailable bool            `json:"is_available" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Category *Category `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}
