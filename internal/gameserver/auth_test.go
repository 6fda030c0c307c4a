package gameserver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/cory-johannsen/arena/internal/gameserver"
)

func TestAdminAuth_AcceptsMatchingToken(t *testing.T) {
	hash, err := gameserver.HashToken("s3cret")
	require.NoError(t, err)
	auth := gameserver.NewAdminAuth(hash)
	assert.True(t, auth.Enabled())
	assert.NoError(t, auth.Check("s3cret"))
}

func TestAdminAuth_RejectsWrongOrMissingToken(t *testing.T) {
	hash, err := gameserver.HashToken("s3cret")
	require.NoError(t, err)
	auth := gameserver.NewAdminAuth(hash)
	assert.ErrorIs(t, auth.Check("guess"), gameserver.ErrUnauthorized)
	assert.ErrorIs(t, auth.Check(""), gameserver.ErrUnauthorized)
}

func TestAdminAuth_DisabledRejectsEverything(t *testing.T) {
	var auth gameserver.AdminAuth
	assert.False(t, auth.Enabled())
	assert.ErrorIs(t, auth.Check("anything"), gameserver.ErrUnauthorized)
}

func TestAdminAuth_CheckContext(t *testing.T) {
	hash, err := gameserver.HashToken("s3cret")
	require.NoError(t, err)
	auth := gameserver.NewAdminAuth(hash)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(gameserver.TokenMetadataKey, "Bearer s3cret"))
	assert.NoError(t, auth.CheckContext(ctx))

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(gameserver.TokenMetadataKey, "Bearer nope"))
	assert.ErrorIs(t, auth.CheckContext(ctx), gameserver.ErrUnauthorized)

	assert.ErrorIs(t, auth.CheckContext(context.Background()), gameserver.ErrUnauthorized)
}

func TestHashToken_RejectsEmpty(t *testing.T) {
	_, err := gameserver.HashToken("")
	assert.Error(t, err)
}
