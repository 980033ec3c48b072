package match_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/pongarena/server/config"
	"github.com/pongarena/server/errcode"
	"github.com/pongarena/server/match"
	"github.com/pongarena/server/model"
	"github.com/pongarena/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*match.Service, *gorm.DB, int64, int64) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := config.MatchConfig{
		DefaultRounds: 3,
		MaxRounds:     11,
		EndpointBase:  "/ws/pong/",
	}
	svc := match.NewService(db, cfg, testutil.Logger())
	return svc, db, seedPlayer(t, db, "alice"), seedPlayer(t, db, "bob")
}

func seedPlayer(t *testing.T, db *gorm.DB, name string) int64 {
	t.Helper()
	acc := model.Account{PasswordHash: "x"}
	require.NoError(t, db.Create(&acc).Error)
	p := model.Player{AccountID: acc.ID, Name: name}
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

func TestCreate(t *testing.T) {
	svc, _, p1, p2 := newService(t)

	created, err := svc.Create(context.Background(), p1, p2, model.MatchPublic, 0)
	require.NoError(t, err)

	assert.NotZero(t, created.Match.ID)
	assert.Equal(t, model.MatchPublic, created.Match.Type)
	assert.Nil(t, created.Match.PrivateCode)
	assert.Len(t, created.Rounds, 3, "zero rounds means the default")
	assert.Equal(t, fmt.Sprintf("/ws/pong/%d", created.Match.ID), created.Endpoint)

	for _, r := range created.Rounds {
		assert.Equal(t, created.Match.ID, r.MatchID)
		assert.False(t, r.Finished)
		assert.Zero(t, r.Score1)
		assert.Zero(t, r.Score2)

		var ball map[string]int
		require.NoError(t, json.Unmarshal(r.BallPosition, &ball))
		assert.Equal(t, model.BallStartX, ball["x"])
		assert.Equal(t, model.BallStartY, ball["y"])

		var paddles map[string]int
		require.NoError(t, json.Unmarshal(r.PaddlePosition, &paddles))
		assert.Equal(t, model.PaddleStartY, paddles["l"])
		assert.Equal(t, model.PaddleStartY, paddles["r"])
	}
}

func TestCreate_Private(t *testing.T) {
	svc, _, p1, p2 := newService(t)

	created, err := svc.Create(context.Background(), p1, p2, model.MatchPrivate, 5)
	require.NoError(t, err)

	require.NotNil(t, created.Match.PrivateCode)
	assert.Len(t, *created.Match.PrivateCode, 36)
	assert.Len(t, created.Rounds, 5)

	// Join codes are unique per match.
	second, err := svc.Create(context.Background(), p1, p2, model.MatchPrivate, 1)
	require.NoError(t, err)
	assert.NotEqual(t, *created.Match.PrivateCode, *second.Match.PrivateCode)
}

func TestCreate_RoundsCapped(t *testing.T) {
	svc, _, p1, p2 := newService(t)

	created, err := svc.Create(context.Background(), p1, p2, model.MatchPublic, 99)
	require.NoError(t, err)
	assert.Len(t, created.Rounds, 11)
}

func TestCreate_Guards(t *testing.T) {
	svc, db, p1, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, p1, 9999, model.MatchPublic, 3)
	assert.ErrorIs(t, err, errcode.ErrMatchPlayerNotFound)

	_, err = svc.Create(ctx, p1, p1, "ranked", 3)
	assert.ErrorIs(t, err, errcode.ErrInvalidMatchType)

	// A failed create leaves no partial rows behind.
	var matches, rounds int64
	db.Model(&model.Match{}).Count(&matches)
	db.Model(&model.Round{}).Count(&rounds)
	assert.Zero(t, matches)
	assert.Zero(t, rounds)
}

func TestGet(t *testing.T) {
	svc, _, p1, p2 := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, p1, p2, model.MatchPublic, 2)
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.Match.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Match.ID, got.Match.ID)
	assert.Len(t, got.Rounds, 2)
	assert.Equal(t, created.Endpoint, got.Endpoint)

	_, err = svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, errcode.ErrMatchNotFound)
}

func TestEndpoint(t *testing.T) {
	svc, _, _, _ := newService(t)
	assert.Equal(t, "/ws/pong/42", svc.Endpoint(42))
}
