package config

import (
	"context"

	"go.uber.org/zap"
	"p9e.in/verifyops/pkg/accounts"
)

// SeedAdmin creates the bootstrap admin from ADMIN_EMAIL / ADMIN_PASSWORD when
// the users table is empty. It is a no-op once any user exists.
func SeedAdmin(ctx context.Context, acc *accounts.Service, admin AdminConfig) error {
	if admin.Email == "" || admin.Password == "" {
		zap.S().Infow("admin bootstrap skipped, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}
	created, err := acc.EnsureAdmin(ctx, accounts.UserInput{
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
	})
	if err != nil {
		return err
	}
	if created {
		zap.S().Infow("bootstrap admin created", "email", admin.Email)
	}
	return nil
}
