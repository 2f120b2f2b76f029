package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project : construction project Model
type Project struct {
	ID           int64         `json:"id" bun:",pk,autoincrement"`
	OrgID        int64         `json:"org_id" bun:",notnull"`
	Organization *Organization `json:"-" bun:"rel:belongs-to,join:org_id=id"`
	Name         string        `json:"name" bun:",notnull"`
	CreatedAt    time.Time     `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

// Contract : a signed contract against which draws and retainage are tracked
type Contract struct {
	ID               int64           `json:"id" bun:",pk,autoincrement"`
	OrgID            int64           `json:"org_id" bun:",notnull"`
	ProjectID        int64           `json:"project_id" bun:",notnull"`
	Project          *Project        `json:"-" bun:"rel:belongs-to,join:project_id=id"`
	ContactID        int64           `json:"contact_id" bun:",notnull"`
	Contact          *Contact        `json:"-" bun:"rel:belongs-to,join:contact_id=id"`
	TotalCents       int64           `json:"total_cents" bun:",notnull"`
	RetainagePercent decimal.Decimal `json:"retainage_percent" bun:"type:numeric(5,2),nullzero"`
	CreatedAt        time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
