package models

import (
	"time"
)

// Contact : billing recipient Model
type Contact struct {
	ID           int64         `json:"id" bun:",pk,autoincrement"`
	OrgID        int64         `json:"org_id" bun:",notnull"`
	Organization *Organization `json:"-" bun:"rel:belongs-to,join:org_id=id"`
	Name         string        `json:"name" bun:",notnull"`
	Email        string        `json:"email" bun:",nullzero"`
	Phone        string        `json:"phone" bun:",nullzero"`
	CreatedAt    time.Time     `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
