package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"amcdesk/internal/auth"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
	"amcdesk/server"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator or reset the password of an existing one",
	Example: `  amcdesk admin create --email admin@example.com --password secret
  AMCDESK_ADMIN_PASSWORD=secret amcdesk admin create --email admin@example.com`,
	RunE: runAdminCreate,
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "password (or AMCDESK_ADMIN_PASSWORD)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "full name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := server.OpenDB(cfg, true)
	if err != nil {
		return err
	}
	if sqlDB, err := d.DB(); err == nil {
		defer sqlDB.Close()
	}
	pw := adminPassword
	if pw == "" {
		pw = envPassword()
	}
	u, created, err := ensureAdmin(cmd.Context(), d, server.NewStores(cfg, d), adminEmail, adminName, pw)
	if err != nil {
		return err
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin %s %s (%s)\n", u.Email, verb, u.ID)
	return nil
}

func envPassword() string { return os.Getenv("AMCDESK_ADMIN_PASSWORD") }

// ensureAdmin создаёт администратора; существующему пользователю с этим email
// выставляет тип admin и новый пароль.
func ensureAdmin(ctx context.Context, d *gorm.DB, stores *repo.Stores, email, name, password string) (*models.User, bool, error) {
	if len(password) < 8 {
		return nil, false, errors.New("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	existing, err := stores.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := stores.Users.SetPassword(ctx, existing.ID, hash); err != nil {
			return nil, false, err
		}
		if err := d.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).
			Update("user_type", models.UserAdmin).Error; err != nil {
			return nil, false, err
		}
		existing.UserType = models.UserAdmin
		return existing, false, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, false, err
	}
	u := &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(name),
		UserType:     models.UserAdmin,
		PasswordHash: hash,
	}
	if err := stores.Users.CreateUser(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}
