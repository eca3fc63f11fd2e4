// Package mappingstore persists the pseudonymization tables of each run so
// pseudonymized ids can be re-joined later.
package mappingstore

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	KindMemberPrefix = "member_prefix"
	KindStore        = "store"
	KindAssociate    = "associate"
)

// Mapping stores one raw value and its pseudonym for a run.
type Mapping struct {
	RunID     snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Kind      string       `gorm:"primaryKey;type:text"`
	Raw       string       `gorm:"primaryKey;type:text"`
	Pseudonym string       `gorm:"type:text;not null"`
	Online    bool         `gorm:"not null;default:false"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Mapping) TableName() string { return "pseudonym_mappings" }
