package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/lib/tokens"
	"golang.org/x/crypto/bcrypt"
)

// CreateUser registers a login for an organization. The organization is
// created on the fly when orgName is given and orgId is zero.
func (svc *BillingService) CreateUser(ctx context.Context, orgId int64, orgName, login, password string) (*models.User, error) {
	if login == "" || password == "" {
		return nil, NewValidationError("login and password are required")
	}

	if orgId == 0 {
		if orgName == "" {
			return nil, NewValidationError("an organization id or name is required")
		}
		org := &models.Organization{Name: orgName}
		if _, err := svc.DB.NewInsert().Model(org).Exec(ctx); err != nil {
			return nil, err
		}
		orgId = org.ID
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		OrgID:    orgId,
		Login:    login,
		Password: string(hashed),
	}
	if _, err = svc.DB.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByLogin authenticates login/password against the stored bcrypt
// hash. Deactivated users fail the same way a bad password does.
func (svc *BillingService) FindUserByLogin(ctx context.Context, login, password string) (*models.User, error) {
	var user models.User
	err := svc.DB.NewSelect().
		Model(&user).
		Where("login = ?", login).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewValidationError("bad login or password")
	}
	if err != nil {
		return nil, err
	}
	if user.Deactivated {
		return nil, NewValidationError("bad login or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, NewValidationError("bad login or password")
	}
	return &user, nil
}

// GenerateToken authenticates the login and mints an access token carrying
// the user and org ids.
func (svc *BillingService) GenerateToken(ctx context.Context, login, password string) (accessToken string, err error) {
	user, err := svc.FindUserByLogin(ctx, login, password)
	if err != nil {
		return "", err
	}
	return tokens.GenerateAccessToken(svc.Config.JWTSecret, svc.Config.JWTExpiry, user)
}

func (svc *BillingService) FindUser(ctx context.Context, userId int64) (*models.User, error) {
	var user models.User
	err := svc.DB.NewSelect().
		Model(&user).
		Where("id = ?", userId).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
