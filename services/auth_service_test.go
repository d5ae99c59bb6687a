package services

import (
	"testing"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewAuthService(newTestDB(t))

	user, err := svc.Register("eve@test.dev", "hunter2", "Eve Tester")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	assert.NotEqual(t, "hunter2", user.Password)

	token, err := svc.Authenticate("eve@test.dev", "hunter2")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "eve@test.dev", claims["email"])
	assert.EqualValues(t, user.ID, claims["userId"])
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewAuthService(newTestDB(t))

	_, err := svc.Register("eve@test.dev", "hunter2", "Eve Tester")
	require.NoError(t, err)

	_, err = svc.Authenticate("eve@test.dev", "wrong")
	assert.Error(t, err)
	_, err = svc.Authenticate("nobody@test.dev", "hunter2")
	assert.Error(t, err)
}

func TestAuthenticate_DisabledUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := newTestDB(t)
	svc := NewAuthService(db)

	user, err := svc.Register("eve@test.dev", "hunter2", "Eve Tester")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("disabled", true).Error)

	_, err = svc.Authenticate("eve@test.dev", "hunter2")
	assert.Error(t, err)
}
