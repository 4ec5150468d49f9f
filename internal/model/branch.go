package model

import (
	"time"

	"github.com/google/uuid"
)

// BranchRole distinguishes the central distribution warehouse (CEDIS) from
// ordinary stores. At most one branch carries RoleCentral.
type BranchRole string

const (
	RoleCentral  BranchRole = "central"
	RoleStandard BranchRole = "standard"
)

// CentralBranchCode is the code the seed gives the central warehouse. The role
// column, not the code, is what the distribution policy looks at.
const CentralBranchCode = "CEDIS-000"

type Branch struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string     `gorm:"type:varchar(20);uniqueIndex;not null"`
	Name      string     `gorm:"not null"`
	Role      BranchRole `gorm:"type:varchar(10);not null;default:'standard'"`
	IsActive  bool       `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Branch) IsCentral() bool { return b.Role == RoleCentral }
