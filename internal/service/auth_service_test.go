package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
)

func TestRegister_HashesAndNormalizes(t *testing.T) {
	e := newEnv(t, DueTodayInstant)

	u, err := e.auth.Register(context.Background(), SignupInput{
		FirstName: " Test ",
		LastName:  "User A",
		Email:     " User.A@Test.com ",
		Password:  "password",
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Test", u.FirstName)
	assert.Equal(t, "user.a@test.com", u.Email)
	assert.NotEqual(t, "password", u.PasswordHash)
	assert.True(t, CheckPassword("password", u.PasswordHash))
	assert.Equal(t, "Test User A", u.DisplayName())
}

func TestRegister_Validation(t *testing.T) {
	e := newEnv(t, DueTodayInstant)

	cases := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"missing first name", SignupInput{Email: "a@test.com", Password: "password"}, "firstName"},
		{"missing email", SignupInput{FirstName: "A", Password: "password"}, "email"},
		{"bad email", SignupInput{FirstName: "A", Email: "not-an-email", Password: "password"}, "email"},
		{"missing password", SignupInput{FirstName: "A", Email: "a@test.com"}, "password"},
		{"short password", SignupInput{FirstName: "A", Email: "a@test.com", Password: "12345"}, "password"},
		{"long password", SignupInput{FirstName: "A", Email: "a@test.com", Password: strings.Repeat("p", 80)}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.auth.Register(context.Background(), tc.in)
			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	e.signup(t, "dup@test.com")

	_, err := e.auth.Register(context.Background(), SignupInput{
		FirstName: "Again",
		Email:     "DUP@test.com",
		Password:  "password",
	})
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Email is already registered", verr.Fields["email"])
}

func TestLogin(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "user.a@test.com")
	ctx := context.Background()

	got, err := e.auth.Login(ctx, "USER.A@test.com", "password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = e.auth.Login(ctx, "user.a@test.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.auth.Login(ctx, "nobody@test.com", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUser(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")

	got, err := e.auth.User(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = e.auth.User(context.Background(), u.ID+100)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegister_AcceptsPasswordAtBcryptLimit(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	pw := strings.Repeat("p", 72)

	u, err := e.auth.Register(context.Background(), SignupInput{
		FirstName: "A",
		Email:     "limit@test.com",
		Password:  pw,
	})
	require.NoError(t, err)
	assert.True(t, CheckPassword(pw, u.PasswordHash))
}
