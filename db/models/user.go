package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// User : User Model
type User struct {
	ID            int64         `json:"id" bun:",pk,autoincrement"`
	OrgID         int64         `json:"org_id" bun:",notnull"`
	Organization  *Organization `json:"-" bun:"rel:belongs-to,join:org_id=id"`
	Login         string        `json:"login" bun:",unique,notnull"`
	Password      string        `json:"-" bun:",notnull"`
	CreatedAt     time.Time     `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     bun.NullTime  `json:"updated_at"`
	Deactivated   bool          `json:"-" bun:",nullzero"`
	DeactivatedAt bun.NullTime  `json:"-" bun:",nullzero"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		u.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*User)(nil)
