package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"task-app/backend/task-service/handlers"
	"task-app/backend/task-service/logging"
	"task-app/backend/task-service/middleware"
	"task-app/backend/task-service/repositories"
	"task-app/backend/task-service/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Task Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoURI == "" || mongoDBName == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: MONGO_URI and MONGO_DB_NAME must be set.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	tasksCollection := client.Database(mongoDBName).Collection("tasks")
	usersCollection := client.Database(mongoDBName).Collection("users")

	taskRepo := repositories.NewMongoTaskRepository(tasksCollection)
	userRepo := repositories.NewMongoUserRepository(usersCollection)

	// In-app feed je opcionalan; bez Cassandre servis nastavlja samo sa emailom.
	notificationRepo, err := repositories.NewNotificationRepo()
	if err != nil {
		logging.Logger.Warnf("Event ID: CASSANDRA_UNAVAILABLE, Description: Notification feed disabled: %v", err)
		notificationRepo = nil
	} else {
		defer notificationRepo.CloseSession()
	}

	emailBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications-email-cb",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	blackList, err := services.LoadBlackList(os.Getenv("BLACKLIST_FILE"))
	if err != nil {
		logging.Logger.Fatalf("Event ID: BLACKLIST_LOAD_FAILED, Description: Failed to load password blacklist: %v", err)
	}

	notificationService := services.NewNotificationService(notificationRepo, emailBreaker)
	taskService := services.NewTaskService(taskRepo, userRepo, notificationService)
	userService := services.NewUserService(userRepo, taskRepo, &services.JWTService{}, blackList)

	taskHandler := handlers.NewTaskHandler(taskService)
	adminHandler := handlers.NewAdminHandler(taskService, userService)
	userHandler := handlers.NewUserHandler(userService)
	loginHandler := handlers.NewLoginHandler(userService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Periodično čišćenje neaktiviranih naloga sa isteklim rokom verifikacije.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			userService.DeleteExpiredUnverifiedUsers(context.Background())
		}
	}()

	auth := func(h http.HandlerFunc) http.Handler {
		return middleware.JWTAuthMiddleware(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.JWTAuthMiddleware(middleware.RequireAdmin(h))
	}

	// Kreiranje mux routera
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/register", userHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", loginHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-email", userHandler.VerifyEmailLink).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/verify-email", userHandler.VerifyEmailCode).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/security-question", loginHandler.GetSecurityQuestion).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/reset-password", loginHandler.ResetPassword).Methods(http.MethodPost)

	r.Handle("/api/users/me", auth(userHandler.GetMyProfile)).Methods(http.MethodGet)
	r.Handle("/api/users/me", auth(userHandler.UpdateMyProfile)).Methods(http.MethodPatch)
	r.Handle("/api/users/me", auth(userHandler.DeleteMyAccount)).Methods(http.MethodDelete)

	r.Handle("/api/tasks/my", auth(taskHandler.GetMyTasks)).Methods(http.MethodGet)
	r.Handle("/api/tasks/{id}/complete", auth(taskHandler.CompleteTask)).Methods(http.MethodPatch)
	r.Handle("/api/tasks/{id}/excuse", auth(taskHandler.SubmitExcuse)).Methods(http.MethodPatch)

	r.Handle("/api/notifications", auth(notificationHandler.GetMyNotifications)).Methods(http.MethodGet)
	r.Handle("/api/notifications/{id}/read", auth(notificationHandler.MarkAsRead)).Methods(http.MethodPatch)

	r.Handle("/api/admin/dashboard", admin(adminHandler.GetDashboardStats)).Methods(http.MethodGet)
	r.Handle("/api/admin/tasks/excuses", admin(adminHandler.GetTasksWithExcuses)).Methods(http.MethodGet)
	r.Handle("/api/admin/tasks", admin(adminHandler.CreateTask)).Methods(http.MethodPost)
	r.Handle("/api/admin/tasks", admin(adminHandler.SearchTasks)).Methods(http.MethodGet)
	r.Handle("/api/admin/tasks/{id}", admin(adminHandler.GetTaskByID)).Methods(http.MethodGet)
	r.Handle("/api/admin/tasks/{id}", admin(adminHandler.UpdateTask)).Methods(http.MethodPut)
	r.Handle("/api/admin/tasks/{id}", admin(adminHandler.DeleteTask)).Methods(http.MethodDelete)
	r.Handle("/api/admin/tasks/{id}/reassign", admin(adminHandler.ReassignTask)).Methods(http.MethodPatch)
	r.Handle("/api/admin/tasks/{id}/respond", admin(adminHandler.RespondExcuse)).Methods(http.MethodPatch)
	r.Handle("/api/admin/tasks/{id}/unlock", admin(adminHandler.UnlockTask)).Methods(http.MethodPatch)
	r.Handle("/api/admin/users", admin(adminHandler.GetAllUsers)).Methods(http.MethodGet)
	r.Handle("/api/admin/users", admin(adminHandler.CreateUser)).Methods(http.MethodPost)
	r.Handle("/api/admin/users/{id}", admin(adminHandler.GetUserByID)).Methods(http.MethodGet)
	r.Handle("/api/admin/users/{id}", admin(adminHandler.DeleteUser)).Methods(http.MethodDelete)

	corsRouter := enableCORS(r)

	// Pokretanje servera
	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      corsRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
