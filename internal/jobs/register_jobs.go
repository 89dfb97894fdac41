package jobs

import (
	"context"

	"github.com/heartlink/backend/internal/queue"
	"gorm.io/gorm"
)

// RegisterJobHandlers registers all background job handlers on the queue
func RegisterJobHandlers(q *queue.Queue, db *gorm.DB) {
	winnerJob := NewWinnerNotificationJob(db)
	q.RegisterHandler(queue.JobTypeNotifyLotteryWinner, func(ctx context.Context, job queue.Job) (interface{}, error) {
		return nil, winnerJob.Notify(ctx, &job)
	})

	adminAlertJob := NewAdminAlertJob(db)
	q.RegisterHandler(queue.JobTypeNotifyAdminTaskInput, func(ctx context.Context, job queue.Job) (interface{}, error) {
		return nil, adminAlertJob.Alert(ctx, &job)
	})
}
