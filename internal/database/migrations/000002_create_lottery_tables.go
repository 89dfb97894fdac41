package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateLotteryTables creates campaigns, prizes and entries
func CreateLotteryTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_lottery_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS campaigns (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					description TEXT,
					end_date TIMESTAMP WITH TIME ZONE NOT NULL,
					total_prize_pool_usd DECIMAL(20, 2) NOT NULL,
					min_referrals_to_enter INT NOT NULL DEFAULT 1,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					entries_count BIGINT DEFAULT 0,
					winners_count INT DEFAULT 0,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_campaigns_status ON campaigns(status);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS prizes (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					campaign_id UUID NOT NULL REFERENCES campaigns(id),
					rank INT NOT NULL,
					prize_name VARCHAR(255) NOT NULL,
					prize_description TEXT,
					prize_value_usd DECIMAL(20, 2) NOT NULL,
					quantity INT NOT NULL DEFAULT 1,
					winner_user_id UUID REFERENCES users(id),
					awarded_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_prizes_campaign_id ON prizes(campaign_id);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS entries (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					campaign_id UUID NOT NULL REFERENCES campaigns(id),
					user_id UUID NOT NULL REFERENCES users(id),
					referrals_count INT NOT NULL DEFAULT 0,
					tickets_earned INT NOT NULL DEFAULT 0,
					is_winner BOOLEAN NOT NULL DEFAULT FALSE,
					entry_date TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					UNIQUE(campaign_id, user_id)
				);

				CREATE INDEX idx_entries_campaign_id ON entries(campaign_id);
				CREATE INDEX idx_entries_user_id ON entries(user_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS entries").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS prizes").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS campaigns").Error
		},
	}
}
