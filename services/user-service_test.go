package services

import (
	"context"
	"testing"
	"time"

	"task-app/backend/task-service/models"
	"task-app/backend/task-service/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Str0ng!Pass"

type userTestEnv struct {
	users *repositories.InMemoryUserRepository
	tasks *repositories.InMemoryTaskRepository
	svc   *UserService
}

func newUserTestEnv(t *testing.T) *userTestEnv {
	t.Helper()
	users := repositories.NewInMemoryUserRepository()
	tasks := repositories.NewInMemoryTaskRepository()
	return &userTestEnv{
		users: users,
		tasks: tasks,
		svc:   NewUserService(users, tasks, &JWTService{}, map[string]bool{"Password123!": true}),
	}
}

func registerReq(username, role string) RegisterRequest {
	return RegisterRequest{
		Username:         username,
		Email:            username + "@example.com",
		Password:         testPassword,
		SecurityQuestion: "What is your favorite color?",
		Answer:           "blue",
		Role:             role,
	}
}

func TestRegister(t *testing.T) {
	env := newUserTestEnv(t)

	user, err := env.svc.Register(context.Background(), registerReq("Pera", ""))
	require.NoError(t, err)
	assert.Equal(t, "pera", user.Username)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.False(t, user.IsActive)
	assert.NotEmpty(t, user.VerificationCode)
	assert.NotEqual(t, testPassword, user.Password)
}

func TestRegister_FirstAdminWins(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Register(ctx, registerReq("boss", models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)

	// Drugi pokušaj registracije administratora se odbija.
	_, err = env.svc.Register(ctx, registerReq("boss2", models.RoleAdmin))
	var fe *models.ForbiddenError
	assert.ErrorAs(t, err, &fe)

	// Obična registracija i dalje prolazi.
	second, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.Role)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, registerReq("pera", ""))
	var ce *models.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestRegister_WeakPassword(t *testing.T) {
	env := newUserTestEnv(t)

	for _, password := range []string{
		"Ab1!",           // prekratka
		"alllowercase1!", // bez velikog slova
		"NoDigits!!",     // bez cifre
		"NoSpecial123",   // bez specijalnog znaka
		"Password123!",   // na crnoj listi
	} {
		req := registerReq("pera", "")
		req.Password = password
		_, err := env.svc.Register(context.Background(), req)

		var ve *models.ValidationError
		assert.ErrorAs(t, err, &ve, "password %q should be rejected", password)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	env := newUserTestEnv(t)

	req := registerReq("pera", "")
	req.SecurityQuestion = ""
	_, err := env.svc.Register(context.Background(), req)

	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestVerifyEmailCode(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)

	err = env.svc.VerifyEmailCode(ctx, "pera", "000000")
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)

	require.NoError(t, env.svc.VerifyEmailCode(ctx, "Pera", user.VerificationCode))

	stored, err := env.users.GetByUsername(ctx, "pera")
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	// Ponovna verifikacija je bezopasna.
	require.NoError(t, env.svc.VerifyEmailCode(ctx, "pera", user.VerificationCode))
}

func TestVerifyEmailToken(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)

	token, err := env.svc.JWTService.GenerateEmailVerificationToken("pera")
	require.NoError(t, err)

	require.NoError(t, env.svc.VerifyEmailToken(ctx, token))

	stored, err := env.users.GetByUsername(ctx, "pera")
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestVerifyEmailToken_Invalid(t *testing.T) {
	env := newUserTestEnv(t)

	err := env.svc.VerifyEmailToken(context.Background(), "not-a-token")

	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestLogin(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)

	// Neverifikovan nalog ne može da se prijavi.
	_, _, err = env.svc.Login(ctx, "pera", testPassword)
	var fe *models.ForbiddenError
	assert.ErrorAs(t, err, &fe)

	require.NoError(t, env.svc.VerifyEmailCode(ctx, "pera", user.VerificationCode))

	loggedIn, token, err := env.svc.Login(ctx, "Pera", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "pera", loggedIn.Username)
	assert.NotEmpty(t, token)

	_, _, err = env.svc.Login(ctx, "pera", "WrongPass1!")
	var ue *models.UnauthorizedError
	assert.ErrorAs(t, err, &ue)

	_, _, err = env.svc.Login(ctx, "ghost", testPassword)
	assert.ErrorAs(t, err, &ue)
}

func TestResetPassword(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)
	require.NoError(t, env.svc.VerifyEmailCode(ctx, "pera", user.VerificationCode))

	question, err := env.svc.GetSecurityQuestion(ctx, "pera")
	require.NoError(t, err)
	assert.Equal(t, "What is your favorite color?", question)

	err = env.svc.ResetPassword(ctx, "pera", "red", "NewStr0ng!Pass")
	var ue *models.UnauthorizedError
	assert.ErrorAs(t, err, &ue)

	require.NoError(t, env.svc.ResetPassword(ctx, "pera", "blue", "NewStr0ng!Pass"))

	_, _, err = env.svc.Login(ctx, "pera", "NewStr0ng!Pass")
	require.NoError(t, err)
	_, _, err = env.svc.Login(ctx, "pera", testPassword)
	assert.ErrorAs(t, err, &ue)
}

func TestResetPassword_WeakNewPassword(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)

	err = env.svc.ResetPassword(ctx, "pera", "blue", "weak")
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestUpdateProfile(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)
	_, err = env.svc.Register(ctx, registerReq("mika", ""))
	require.NoError(t, err)

	newUsername := "Perislav"
	updated, err := env.svc.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Username: &newUsername})
	require.NoError(t, err)
	assert.Equal(t, "perislav", updated.Username)

	// Zauzeto korisničko ime se odbija.
	taken := "mika"
	_, err = env.svc.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Username: &taken})
	var ce *models.ConflictError
	assert.ErrorAs(t, err, &ce)

	takenEmail := "mika@example.com"
	_, err = env.svc.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Email: &takenEmail})
	assert.ErrorAs(t, err, &ce)
}

func TestDeleteAccount_CascadesTasks(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, registerReq("pera", ""))
	require.NoError(t, err)
	other, err := env.svc.Register(ctx, registerReq("mika", ""))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = env.tasks.Create(ctx, &models.Task{
			Title:      "Write report",
			Status:     models.StatusTodo,
			Priority:   models.PriorityMedium,
			DueDate:    time.Now().Add(24 * time.Hour),
			AssignedTo: user.ID,
		})
		require.NoError(t, err)
	}
	kept, err := env.tasks.Create(ctx, &models.Task{
		Title:      "Other report",
		Status:     models.StatusTodo,
		Priority:   models.PriorityMedium,
		DueDate:    time.Now().Add(24 * time.Hour),
		AssignedTo: other.ID,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteAccount(ctx, user.ID))

	_, err = env.svc.GetProfile(ctx, user.ID)
	var nfe *models.NotFoundError
	assert.ErrorAs(t, err, &nfe)

	remaining, err := env.tasks.Search(ctx, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].ID)

	// Ponovno brisanje istog naloga vraća not found.
	assert.ErrorAs(t, env.svc.DeleteAccount(ctx, user.ID), &nfe)
}

func TestCreateUser_AdminCreatedActive(t *testing.T) {
	env := newUserTestEnv(t)

	user, err := env.svc.CreateUser(context.Background(), RegisterRequest{
		Username: "pera",
		Email:    "pera@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.SecurityQuestion)
}

func TestDeleteExpiredUnverifiedUsers(t *testing.T) {
	env := newUserTestEnv(t)
	ctx := context.Background()

	expired, err := env.users.Create(ctx, &models.User{
		Username:           "stale",
		Email:              "stale@example.com",
		Role:               models.RoleUser,
		IsActive:           false,
		VerificationExpiry: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	fresh, err := env.users.Create(ctx, &models.User{
		Username:           "fresh",
		Email:              "fresh@example.com",
		Role:               models.RoleUser,
		IsActive:           false,
		VerificationExpiry: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	env.svc.DeleteExpiredUnverifiedUsers(ctx)

	gone, err := env.users.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := env.users.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
