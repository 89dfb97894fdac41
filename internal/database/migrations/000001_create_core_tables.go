package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateCoreTables creates users, referrals, notifications, badges and jobs
func CreateCoreTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_core_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					email VARCHAR(255) NOT NULL UNIQUE,
					display_name VARCHAR(100),
					referral_code VARCHAR(50) NOT NULL DEFAULT '',
					is_admin BOOLEAN DEFAULT FALSE,
					email_verified BOOLEAN DEFAULT FALSE,
					email_bounce_reason VARCHAR(255),
					email_bounced_at TIMESTAMP WITH TIME ZONE,
					email_drop_reason VARCHAR(255),
					email_dropped_at TIMESTAMP WITH TIME ZONE,
					spam_reported_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_users_email ON users(email);

				CREATE UNIQUE INDEX idx_users_referral_code ON users(referral_code)
					WHERE referral_code <> '';
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS referrals (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					referrer_id UUID NOT NULL REFERENCES users(id),
					referred_user_id UUID NOT NULL REFERENCES users(id),
					referral_code VARCHAR(50) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					completed_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE(referrer_id, referred_user_id)
				);

				CREATE INDEX idx_referrals_referrer_id ON referrals(referrer_id);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS notifications (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					user_id UUID NOT NULL REFERENCES users(id),
					type VARCHAR(50) NOT NULL,
					message TEXT NOT NULL,
					data JSONB,
					read_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_notifications_user_id ON notifications(user_id);

				CREATE TABLE IF NOT EXISTS badges (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					user_id UUID NOT NULL REFERENCES users(id),
					badge_key VARCHAR(50) NOT NULL,
					earned_at TIMESTAMP WITH TIME ZONE NOT NULL,
					UNIQUE(user_id, badge_key)
				);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS jobs (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					type VARCHAR(100) NOT NULL,
					payload JSONB,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					retry_count INT DEFAULT 0,
					max_retries INT DEFAULT 3,
					retry_at TIMESTAMP WITH TIME ZONE,
					error TEXT,
					result JSONB,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_jobs_status ON jobs(status);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS jobs").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS badges").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS notifications").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS referrals").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS users").Error
		},
	}
}
