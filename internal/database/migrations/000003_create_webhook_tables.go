package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateWebhookTables creates the webhook ledger, suppression/tracking and
// automation task tables
func CreateWebhookTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_webhook_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS webhook_events (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					provider VARCHAR(50) NOT NULL,
					event_type VARCHAR(100) NOT NULL,
					event_id VARCHAR(255) NOT NULL UNIQUE,
					payload JSONB,
					signature TEXT,
					verified BOOLEAN DEFAULT FALSE,
					processed BOOLEAN DEFAULT FALSE,
					processed_at TIMESTAMP WITH TIME ZONE,
					retry_count INT DEFAULT 0,
					error_message TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_webhook_events_provider ON webhook_events(provider);
				CREATE INDEX idx_webhook_events_processed ON webhook_events(processed);

				CREATE TABLE IF NOT EXISTS webhook_logs (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					webhook_event_id UUID NOT NULL REFERENCES webhook_events(id),
					action VARCHAR(100) NOT NULL,
					status VARCHAR(20) NOT NULL,
					details JSONB,
					error_message TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_webhook_logs_event_id ON webhook_logs(webhook_event_id);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS email_suppressions (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					email VARCHAR(255) NOT NULL UNIQUE,
					reason VARCHAR(100) NOT NULL,
					unsubscribed_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS email_tracking_events (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					email VARCHAR(255) NOT NULL,
					event_type VARCHAR(20) NOT NULL,
					message_id VARCHAR(255),
					url TEXT,
					user_agent VARCHAR(512),
					ip_address VARCHAR(45),
					occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_email_tracking_events_email ON email_tracking_events(email);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS automation_tasks (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					task_id VARCHAR(255) NOT NULL UNIQUE,
					title VARCHAR(512),
					url TEXT,
					status VARCHAR(20) NOT NULL DEFAULT 'running',
					message TEXT,
					stop_reason VARCHAR(50),
					completed_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS task_attachments (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					task_id VARCHAR(255) NOT NULL,
					file_name VARCHAR(512) NOT NULL,
					url TEXT NOT NULL,
					size_bytes BIGINT DEFAULT 0,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_task_attachments_task_id ON task_attachments(task_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS task_attachments").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS automation_tasks").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS email_tracking_events").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS email_suppressions").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS webhook_logs").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS webhook_events").Error
		},
	}
}
