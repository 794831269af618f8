package service

import (
	"context"
	"testing"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/testutil"
	"values_edu_backend/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsFor(subject, name string) *util.Claims {
	return &util.Claims{
		Name:             name,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

func TestEnsureUser_CreatesOnFirstSight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.EnsureUser(ctx, claimsFor("auth|dina", "Dina"))
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, model.Student, user.Role)
	assert.Equal(t, "Dina", user.DisplayName)

	again, err := f.users.EnsureUser(ctx, claimsFor("auth|dina", "Dina"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestEnsureUser_SyncsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.EnsureUser(ctx, claimsFor("auth|eko", "Eko"))
	require.NoError(t, err)

	claims := claimsFor("auth|eko", "Eko Prasetyo")
	claims.Role = model.Teacher
	claims.ClassID = testutil.UintPtr(4)
	claims.Email = "eko@example.com"
	updated, err := f.users.EnsureUser(ctx, claims)
	require.NoError(t, err)

	stored, err := f.users.GetUser(ctx, updated.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eko Prasetyo", stored.DisplayName)
	assert.Equal(t, model.Teacher, stored.Role)
	assert.Equal(t, "eko@example.com", stored.Email)
	require.NotNil(t, stored.ClassID)
	assert.Equal(t, uint(4), *stored.ClassID)

	// 空字段不覆盖已有资料
	kept, err := f.users.EnsureUser(ctx, &util.Claims{Role: model.Teacher, RegisteredClaims: claims.RegisteredClaims})
	require.NoError(t, err)
	assert.Equal(t, "Eko Prasetyo", kept.DisplayName)
	assert.Equal(t, "eko@example.com", kept.Email)
}

func TestGetUser_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.GetUser(context.Background(), 9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}
