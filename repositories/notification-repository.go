package repositories

import (
	"fmt"
	"os"
	"time"

	"task-app/backend/task-service/logging"
	"task-app/backend/task-service/models"

	"github.com/gocql/gocql"
)

// NotificationRepo čuva in-app obaveštenja o životnom ciklusu zadataka
// (dodela, preraspodela, odluka o opravdanju, otključavanje) u Cassandri,
// particionisana po korisničkom imenu.
type NotificationRepo struct {
	session *gocql.Session
}

func NewNotificationRepo() (*NotificationRepo, error) {
	db := os.Getenv("CASS_DB")
	if db == "" {
		db = "127.0.0.1"
	}

	cluster := gocql.NewCluster(db)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %v", err)
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS task_notifications
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`).Exec()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create keyspace: %v", err)
	}
	session.Close()

	cluster.Keyspace = "task_notifications"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to task_notifications keyspace: %v", err)
	}

	repo := &NotificationRepo{session: session}
	if err := repo.createTable(); err != nil {
		session.Close()
		return nil, err
	}

	logging.Logger.Info("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra task_notifications keyspace.")
	return repo, nil
}

func (nr *NotificationRepo) CloseSession() {
	nr.session.Close()
}

func (nr *NotificationRepo) createTable() error {
	err := nr.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID,
			username TEXT,
			user_id TEXT,
			message TEXT,
			created_at TIMESTAMP,
			is_read BOOLEAN,
			PRIMARY KEY ((username), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notifications table: %v", err)
	}
	return nil
}

func (nr *NotificationRepo) CreateNotification(notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = gocql.TimeUUID().String()
	}

	err := nr.session.Query(
		`INSERT INTO notifications (id, username, user_id, message, created_at, is_read)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		notification.ID, notification.Username, notification.UserID, notification.Message, notification.CreatedAt, notification.IsRead,
	).Exec()
	if err != nil {
		return fmt.Errorf("failed to store notification: %v", err)
	}
	return nil
}

func (nr *NotificationRepo) GetNotificationsByUsername(username string) ([]models.Notification, error) {
	query := `SELECT id, user_id, username, message, created_at, is_read
			  FROM notifications WHERE username = ?`

	iter := nr.session.Query(query, username).Iter()
	notifications := []models.Notification{}
	var notification models.Notification

	for iter.Scan(&notification.ID, &notification.UserID, &notification.Username,
		&notification.Message, &notification.CreatedAt, &notification.IsRead) {
		notifications = append(notifications, notification)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %v", err)
	}
	return notifications, nil
}

func (nr *NotificationRepo) MarkNotificationAsRead(username, notificationID, createdAt string) error {
	uuid, err := gocql.ParseUUID(notificationID)
	if err != nil {
		return &models.ValidationError{Message: "invalid notification ID format"}
	}

	parsedCreatedAt, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return &models.ValidationError{Message: "invalid createdAt format"}
	}

	query := `UPDATE notifications SET is_read = true WHERE username = ? AND id = ? AND created_at = ?`
	if err := nr.session.Query(query, username, uuid, parsedCreatedAt).Exec(); err != nil {
		return fmt.Errorf("failed to mark notification as read: %v", err)
	}
	return nil
}
