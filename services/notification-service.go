package services

import (
	"fmt"
	"time"

	"task-app/backend/task-service/logging"
	"task-app/backend/task-service/models"
	"task-app/backend/task-service/repositories"
	"task-app/backend/task-service/utils"

	"github.com/sony/gobreaker"
)

// NotificationService šalje obaveštenja o promenama na zadacima: email preko
// circuit breakera i, kada je Cassandra dostupna, zapis u in-app feed.
// Slanje je fire-and-forget; neuspeh se samo loguje.
type NotificationService struct {
	repo         *repositories.NotificationRepo
	emailBreaker *gobreaker.CircuitBreaker
}

func NewNotificationService(repo *repositories.NotificationRepo, emailBreaker *gobreaker.CircuitBreaker) *NotificationService {
	return &NotificationService{
		repo:         repo,
		emailBreaker: emailBreaker,
	}
}

func (ns *NotificationService) NotifyUser(user *models.User, subject, message string) {
	if ns.repo != nil {
		notification := models.Notification{
			UserID:    user.ID.Hex(),
			Username:  user.Username,
			Message:   message,
			CreatedAt: time.Now(),
			IsRead:    false,
		}
		if err := ns.repo.CreateNotification(&notification); err != nil {
			logging.Logger.Warnf("Event ID: NOTIFICATION_STORE_FAILED, Description: Failed to store notification for '%s': %v", user.Username, err)
		}
	}

	_, err := ns.emailBreaker.Execute(func() (interface{}, error) {
		return nil, utils.SendEmail(user.Email, subject, message)
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_EMAIL_FAILED, Description: Failed to send notification email to '%s': %v", user.Email, err)
	}
}

func (ns *NotificationService) GetNotifications(username string) ([]models.Notification, error) {
	if ns.repo == nil {
		return nil, fmt.Errorf("notification feed is not available")
	}
	return ns.repo.GetNotificationsByUsername(username)
}

func (ns *NotificationService) MarkNotificationAsRead(username, notificationID, createdAt string) error {
	if ns.repo == nil {
		return fmt.Errorf("notification feed is not available")
	}
	return ns.repo.MarkNotificationAsRead(username, notificationID, createdAt)
}
