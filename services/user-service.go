package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-app/backend/task-service/logging"
	"task-app/backend/task-service/models"
	"task-app/backend/task-service/repositories"
	"task-app/backend/task-service/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const verificationValidity = 20 * time.Minute

// UserService pokriva registraciju, prijavu, verifikaciju email adrese,
// profil i administraciju korisničkih naloga.
type UserService struct {
	users      repositories.UserRepository
	tasks      repositories.TaskRepository
	JWTService *JWTService
	blackList  map[string]bool
}

func NewUserService(users repositories.UserRepository, tasks repositories.TaskRepository, jwtService *JWTService, blackList map[string]bool) *UserService {
	return &UserService{
		users:      users,
		tasks:      tasks,
		JWTService: jwtService,
		blackList:  blackList,
	}
}

type RegisterRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	SecurityQuestion string `json:"securityQuestion"`
	Answer           string `json:"answer"`
	Role             string `json:"role"`
}

// Register čuva novog korisnika kao neaktivnog i šalje verifikacioni email.
// Uloga Admin je dozvoljena samo dok nijedan administrator ne postoji; provera
// je sveži upit na skladištu, a ne keširani fleg.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" || req.SecurityQuestion == "" || req.Answer == "" {
		return nil, &models.ValidationError{Message: "username, email, password, securityQuestion and answer are required"}
	}

	// Sanitizacija unosa
	username := strings.ToLower(html.EscapeString(req.Username))
	email := html.EscapeString(req.Email)

	if err := utils.ValidatePassword(req.Password, s.blackList); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &models.ConflictError{Message: "user with this email or username already exists"}
	}

	finalRole := models.RoleUser
	if req.Role != "" && !models.ValidRole(req.Role) {
		return nil, &models.ValidationError{Message: "invalid role"}
	}
	if req.Role == models.RoleAdmin {
		adminCount, err := s.users.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if adminCount > 0 {
			return nil, &models.ForbiddenError{Message: "admin registration is disabled"}
		}
		finalRole = models.RoleAdmin
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	answerHash, err := utils.HashPassword(req.Answer)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:           username,
		Email:              email,
		Password:           passwordHash,
		Role:               finalRole,
		SecurityQuestion:   req.SecurityQuestion,
		Answer:             answerHash,
		IsActive:           false,
		VerificationCode:   utils.GenerateVerificationCode(),
		VerificationExpiry: time.Now().Add(verificationValidity),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.JWTService.GenerateEmailVerificationToken(created.Username)
	if err != nil {
		logging.Logger.Errorf("Event ID: VERIFICATION_TOKEN_FAILED, Description: Failed to generate verification token for '%s': %v", created.Username, err)
	} else if err := utils.SendVerificationEmail(created.Email, token, created.VerificationCode); err != nil {
		// Nalog postoji; neaktivirani korisnici se ionako čiste po isteku roka.
		logging.Logger.Warnf("Event ID: VERIFICATION_EMAIL_FAILED, Description: Failed to send verification email to '%s': %v", created.Email, err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User '%s' registered with role '%s'.", created.Username, created.Role)
	return created, nil
}

// VerifyEmailToken aktivira nalog preko linka iz emaila.
func (s *UserService) VerifyEmailToken(ctx context.Context, token string) error {
	username, err := s.JWTService.ParseEmailVerificationToken(token)
	if err != nil {
		return &models.ValidationError{Message: "invalid or expired verification token"}
	}
	return s.activate(ctx, username, "")
}

// VerifyEmailCode aktivira nalog ručno unetim kodom.
func (s *UserService) VerifyEmailCode(ctx context.Context, username, code string) error {
	if username == "" || code == "" {
		return &models.ValidationError{Message: "username and code are required"}
	}
	return s.activate(ctx, strings.ToLower(username), code)
}

func (s *UserService) activate(ctx context.Context, username, code string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return &models.NotFoundError{Message: "user not found"}
	}
	if user.IsActive {
		return nil
	}
	if time.Now().After(user.VerificationExpiry) {
		return &models.ValidationError{Message: "verification has expired, please register again"}
	}
	if code != "" && code != user.VerificationCode {
		return &models.ValidationError{Message: "invalid verification code"}
	}

	if err := s.users.Activate(ctx, user.ID); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: USER_VERIFIED, Description: User '%s' verified their email.", user.Username)
	return nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.users.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return nil, "", err
	}
	if user == nil || !utils.CheckPassword(user.Password, password) {
		return nil, "", &models.UnauthorizedError{Message: "invalid credentials"}
	}
	if !user.IsActive {
		return nil, "", &models.ForbiddenError{Message: "account is not verified"}
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Username, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}
	return user, token, nil
}

func (s *UserService) GetSecurityQuestion(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", &models.NotFoundError{Message: "user not found"}
	}
	return user.SecurityQuestion, nil
}

// ResetPassword menja lozinku korisniku koji tačno odgovori na svoje
// sigurnosno pitanje.
func (s *UserService) ResetPassword(ctx context.Context, username, answer, newPassword string) error {
	if err := utils.ValidatePassword(newPassword, s.blackList); err != nil {
		return &models.ValidationError{Message: err.Error()}
	}

	user, err := s.users.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return err
	}
	if user == nil {
		return &models.NotFoundError{Message: "user not found"}
	}
	if !utils.CheckPassword(user.Answer, answer) {
		return &models.UnauthorizedError{Message: "wrong answer"}
	}

	passwordHash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, user.ID, passwordHash); err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: PASSWORD_RESET, Description: Password reset for user '%s'.", user.Username)
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &models.NotFoundError{Message: "user not found"}
	}
	return user, nil
}

type UpdateProfileRequest struct {
	Username         *string `json:"username"`
	Email            *string `json:"email"`
	Password         *string `json:"password"`
	SecurityQuestion *string `json:"securityQuestion"`
	Answer           *string `json:"answer"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req UpdateProfileRequest) (*models.User, error) {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &models.NotFoundError{Message: "user not found"}
	}

	update := repositories.UserUpdate{}

	if req.Username != nil {
		username := strings.ToLower(html.EscapeString(*req.Username))
		if username == "" {
			return nil, &models.ValidationError{Message: "username must not be empty"}
		}
		if username != current.Username {
			existing, err := s.users.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, &models.ConflictError{Message: "username is already taken"}
			}
		}
		update.Username = &username
	}

	if req.Email != nil {
		email := html.EscapeString(*req.Email)
		if email == "" {
			return nil, &models.ValidationError{Message: "email must not be empty"}
		}
		if email != current.Email {
			taken, err := s.users.ExistsByUsernameOrEmail(ctx, "", email)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, &models.ConflictError{Message: "email is already taken"}
			}
		}
		update.Email = &email
	}

	if req.Password != nil {
		if err := utils.ValidatePassword(*req.Password, s.blackList); err != nil {
			return nil, &models.ValidationError{Message: err.Error()}
		}
		passwordHash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		update.Password = &passwordHash
	}

	if req.SecurityQuestion != nil {
		if *req.SecurityQuestion == "" {
			return nil, &models.ValidationError{Message: "securityQuestion must not be empty"}
		}
		update.SecurityQuestion = req.SecurityQuestion
	}

	if req.Answer != nil {
		answerHash, err := utils.HashPassword(*req.Answer)
		if err != nil {
			return nil, err
		}
		update.Answer = &answerHash
	}

	updated, err := s.users.Update(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &models.NotFoundError{Message: "user not found"}
	}
	return updated, nil
}

// DeleteAccount briše nalog i kaskadno sve zadatke dodeljene tom korisniku.
func (s *UserService) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	deleted, err := s.users.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return &models.NotFoundError{Message: "user not found"}
	}

	removedTasks, err := s.tasks.DeleteByAssignee(ctx, userID)
	if err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: USER_DELETED, Description: User %s deleted together with %d assigned task(s).", userID.Hex(), removedTasks)
	return nil
}

func (s *UserService) SearchUsers(ctx context.Context, search, role string) ([]models.User, error) {
	return s.users.Search(ctx, search, role)
}

func (s *UserService) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &models.NotFoundError{Message: "user not found"}
	}
	return user, nil
}

// CreateUser je administratorsko kreiranje naloga; nalog je odmah aktivan.
func (s *UserService) CreateUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, &models.ValidationError{Message: "username, email and password are required"}
	}
	if req.Role != "" && !models.ValidRole(req.Role) {
		return nil, &models.ValidationError{Message: "invalid role"}
	}
	if err := utils.ValidatePassword(req.Password, s.blackList); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	username := strings.ToLower(html.EscapeString(req.Username))
	email := html.EscapeString(req.Email)

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &models.ConflictError{Message: "user with this email or username already exists"}
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	securityQuestion := req.SecurityQuestion
	if securityQuestion == "" {
		securityQuestion = "What is your favorite color?"
	}
	answer := req.Answer
	if answer == "" {
		answer = "default"
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	answerHash, err := utils.HashPassword(answer)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:         username,
		Email:            email,
		Password:         passwordHash,
		Role:             role,
		SecurityQuestion: securityQuestion,
		Answer:           answerHash,
		IsActive:         true,
	}
	return s.users.Create(ctx, user)
}

// DeleteUser je administratorsko brisanje naloga, sa istom kaskadom kao
// samostalno brisanje.
func (s *UserService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	return s.DeleteAccount(ctx, userID)
}

// DeleteExpiredUnverifiedUsers briše korisnike kojima je istekao rok za
// verifikaciju i koji nisu aktivni.
func (s *UserService) DeleteExpiredUnverifiedUsers(ctx context.Context) {
	deleted, err := s.users.DeleteExpiredUnverified(ctx, time.Now())
	if err != nil {
		logging.Logger.Errorf("Event ID: UNVERIFIED_CLEANUP_FAILED, Description: Failed to delete expired unverified users: %v", err)
		return
	}
	if deleted > 0 {
		logging.Logger.Infof("Event ID: UNVERIFIED_CLEANUP, Description: Deleted %d expired unverified user(s).", deleted)
	}
}
