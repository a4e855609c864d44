package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

type fakeUsers struct {
	users []models.StreamingUser
}

func (f fakeUsers) GetUserByCredentials(_ context.Context, username, password string) (*models.StreamingUser, error) {
	for i := range f.users {
		if f.users[i].Username == username && f.users[i].Password == password {
			return &f.users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f fakeUsers) GetUserByMAC(_ context.Context, mac string) (*models.StreamingUser, error) {
	for i := range f.users {
		if m := f.users[i].MACAddress; m != nil && NormalizeMAC(*m) == mac {
			return &f.users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func ptr[T any](v T) *T { return &v }

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func users() fakeUsers {
	return fakeUsers{users: []models.StreamingUser{
		{ID: 1, Username: "u1", Password: "p1", Status: models.UserActive, ExpiryDate: ptr(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)), MACAddress: ptr("00:1a:79:aa:bb:cc")},
		{ID: 2, Username: "old", Password: "pw", Status: models.UserActive, ExpiryDate: ptr(now.Add(-time.Hour))},
		{ID: 3, Username: "banned", Password: "pw", Status: models.UserBanned},
		{ID: 4, Username: "forever", Password: "pw", Status: models.UserActive},
	}}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := users()

	u, err := Authenticate(ctx, f, "u1", "p1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = Authenticate(ctx, f, "u1", "wrong", now)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(ctx, f, "", "", now)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err = Authenticate(ctx, f, "old", "pw", now)
	assert.ErrorIs(t, err, ErrExpired)
	require.NotNil(t, u)

	_, err = Authenticate(ctx, f, "banned", "pw", now)
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = Authenticate(ctx, f, "forever", "pw", now)
	assert.NoError(t, err)
}

func TestNormalizeMAC(t *testing.T) {
	assert.Equal(t, "AABBCCDDEEFF", NormalizeMAC("aa:bb:cc:dd:ee:ff"))
	assert.Equal(t, "AABBCCDDEEFF", NormalizeMAC("AA-BB-CC-DD-EE-FF"))
	assert.Equal(t, NormalizeMAC("aa:bb:cc:dd:ee:ff"), NormalizeMAC(" AA-BB-CC-DD-EE-FF "))
}

func TestAuthenticateMAC(t *testing.T) {
	ctx := context.Background()
	u, err := AuthenticateMAC(ctx, users(), "00-1A-79-AA-BB-CC", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.Username)

	_, err = AuthenticateMAC(ctx, users(), "", now)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = AuthenticateMAC(ctx, users(), "11:22:33:44:55:66", now)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVisible(t *testing.T) {
	premium := models.Stream{Name: "P", Bouquet: ptr("premium")}
	open := models.Stream{Name: "O"}
	basic := models.Stream{Name: "B", Bouquet: ptr("basic")}

	everyone := &models.StreamingUser{}
	basicUser := &models.StreamingUser{Bouquets: []string{"basic"}}

	assert.True(t, Visible(everyone, &premium))
	assert.True(t, Visible(basicUser, &open))
	assert.True(t, Visible(basicUser, &basic))
	assert.False(t, Visible(basicUser, &premium))

	got := FilterVisible(basicUser, []models.Stream{premium, open, basic})
	require.Len(t, got, 2)
	assert.Equal(t, "O", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
}

func TestMergeCategories(t *testing.T) {
	table := []models.Category{{ID: 1, Name: "News"}, {ID: 5, Name: "Sport"}}
	streams := []models.Stream{
		{Category: "Sport"}, {Category: "Movies"}, {Category: "Kids"}, {Category: "Movies"}, {Category: ""},
	}
	got := MergeCategories(table, streams)
	assert.Equal(t, []models.Category{
		{ID: 1, Name: "News"},
		{ID: 5, Name: "Sport"},
		{ID: 6, Name: "Kids"},
		{ID: 7, Name: "Movies"},
	}, got)

	assert.Equal(t, "7", CategoryID(got, "Movies"))
	assert.Equal(t, "", CategoryID(got, "Nope"))
	name, ok := CategoryName(got, "6")
	assert.True(t, ok)
	assert.Equal(t, "Kids", name)
	_, ok = CategoryName(got, "x")
	assert.False(t, ok)

	assert.Len(t, StreamsInCategory(streams, "Movies"), 2)
}
