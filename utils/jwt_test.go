package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokupintar/dokubot-be/types"
)

func TestUserTokenRoundTrip(t *testing.T) {
	user := &types.User{
		ID:       "u1",
		Username: "budi",
		FullName: "Budi Santoso",
		Role:     types.USER_ROLE_ADMIN,
	}

	token, err := GenerateUserToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseUserToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.ID)
	assert.Equal(t, "budi", claims.Username)
	assert.Equal(t, types.USER_ROLE_ADMIN, claims.Role)
	assert.Equal(t, "u1", claims.Subject)
}

func TestParseUserTokenRejectsTampering(t *testing.T) {
	token, err := GenerateUserToken(&types.User{ID: "u1", Username: "budi"})
	require.NoError(t, err)

	_, err = ParseUserToken(token + "x")
	assert.Error(t, err)

	_, err = ParseUserToken("not-a-token")
	assert.Error(t, err)
}

func TestGetIdWithoutCheck(t *testing.T) {
	token, err := GenerateUserToken(&types.User{ID: "u42", Username: "sari"})
	require.NoError(t, err)

	id, err := GetIdWithoutCheck(token)
	require.NoError(t, err)
	assert.Equal(t, "u42", id)
}
