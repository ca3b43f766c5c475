package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"brainshare/internal/db/dbtest"
	"brainshare/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	eng *Engine
	now time.Time
}

// newFixture runs the engine with the seeded achievement rules.
func newFixture(t *testing.T) *fixture {
	return newFixtureWithRules(t, DefaultRules())
}

// newBareFixture runs the engine with no achievement rules, so XP only
// moves by the interaction under test.
func newBareFixture(t *testing.T) *fixture {
	return newFixtureWithRules(t, nil)
}

func newFixtureWithRules(t *testing.T, rules map[string]Predicate) *fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	ctx := context.Background()

	catalog, err := LoadCatalog(ctx, gdb, rules)
	require.NoError(t, err)

	f := &fixture{
		t:   t,
		ctx: ctx,
		db:  gdb,
		now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Now = func() time.Time { return f.now }
	f.eng, err = New(gdb, catalog, opts)
	require.NoError(t, err)
	return f
}

func (f *fixture) user(name string, role models.Role) *models.User {
	f.t.Helper()
	u := models.User{
		Username: name,
		Email:    name + "@example.com",
		Password: "-",
		Role:     role,
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return &u
}

func (f *fixture) post(author *models.User, subject string) *models.Post {
	f.t.Helper()
	if subject == "" {
		subject = DefaultSubject
	}
	p := models.Post{
		Pid:     uuid.NewString(),
		UserID:  author.ID,
		Title:   "Post " + subject,
		Body:    "body",
		Type:    models.PostTypeQuestion,
		Subject: subject,
		Status:  models.PostStatusNormal,
	}
	require.NoError(f.t, f.db.Create(&p).Error)
	return &p
}

func (f *fixture) reload(id uint) models.User {
	f.t.Helper()
	var u models.User
	require.NoError(f.t, f.db.First(&u, id).Error)
	return u
}

func (f *fixture) setXP(id uint, xp int) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("xp", xp).Error)
}

func (f *fixture) count(model any, query string, args ...any) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func unlockKeys(unlocks []Unlock) []string {
	keys := make([]string, len(unlocks))
	for i, u := range unlocks {
		keys[i] = u.Key
	}
	return keys
}

func TestErrorMatchesKind(t *testing.T) {
	err := newError("ToggleLike", ErrRateLimitExceeded, "daily %s limit of %d reached", ActivityLike, 3)

	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.NotErrorIs(t, err, ErrStore)
	assert.Equal(t, "ToggleLike: daily like limit of 3 reached", err.Error())
	assert.Equal(t, ErrRateLimitExceeded, KindOf(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.ErrorIs(t, wrapped, ErrRateLimitExceeded)
}

func TestStoreErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := storeError("CreatePost", cause)

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrStore, KindOf(cause))
}
