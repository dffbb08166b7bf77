package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/verifyops/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "02032026_create_account_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Vendor{}, &models.FieldOfficer{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("field_officers", "vendors", "users")
			},
		},
		{
			ID: "02032026_create_case_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Record{}, &models.Verification{}, &models.ReferenceCounter{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("reference_counters", "verifications", "records")
			},
		},
		{
			ID: "09032026_add_candidate_tokens",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.CandidateToken{}, &models.ShortLink{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("short_links", "candidate_tokens")
			},
		},
		{
			ID: "16032026_add_audit_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.CaseTransition{}, &models.NotificationLog{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("notification_logs", "case_transitions")
			},
		},
		{
			ID: "23032026_add_overdue_and_sweep_indexes",
			Migrate: func(tx *gorm.DB) error {
				stmts := []string{
					// overdue report scans active cases by due date
					`CREATE INDEX IF NOT EXISTS idx_records_active_tat ON records (tat_due_date)
						WHERE status IN ('vendor_assigned', 'assigned', 'candidate_assigned')`,
					// token sweep deletes unused tokens past expiry
					`CREATE INDEX IF NOT EXISTS idx_candidate_tokens_unused_expiry ON candidate_tokens (expires_at)
						WHERE is_used = false`,
					// logins compare emails case-insensitively
					`CREATE INDEX IF NOT EXISTS idx_vendors_lower_email ON vendors (LOWER(email))`,
					`CREATE INDEX IF NOT EXISTS idx_users_lower_email ON users (LOWER(email))`,
				}
				for _, stmt := range stmts {
					if err := tx.Exec(stmt).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				for _, idx := range []string{"idx_records_active_tat", "idx_candidate_tokens_unused_expiry", "idx_vendors_lower_email", "idx_users_lower_email"} {
					if err := tx.Exec("DROP INDEX IF EXISTS " + idx).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
	})
	return m.Migrate()
}
