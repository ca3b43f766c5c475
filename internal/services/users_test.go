package services

import (
	"strings"
	"testing"

	"brainshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	f := newFixture(t)

	reg, err := f.eng.RegisterUser(f.ctx, RegisterInput{
		Username: "ana",
		Email:    " Ana@Example.com ",
		Password: "segredo",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, reg.User.Role)
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.Equal(t, []string{"welcome"}, unlockKeys(reg.Unlocks))
	assert.Equal(t, 50, f.reload(reg.User.ID).XP)
	assert.NotEqual(t, "segredo", f.reload(reg.User.ID).Password)

	prof, err := f.eng.RegisterUser(f.ctx, RegisterInput{Username: "prof", Email: "prof@example.com", Password: "segredo", Role: models.RoleProfessor})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProfessor, prof.User.Role)

	_, err = f.eng.RegisterUser(f.ctx, RegisterInput{Username: "ana2", Email: "ana@example.com", Password: "segredo"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = f.eng.RegisterUser(f.ctx, RegisterInput{Username: "ana", Email: "other@example.com", Password: "segredo"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRegisterUserValidation(t *testing.T) {
	f := newFixture(t)
	for _, in := range []RegisterInput{
		{Username: "", Email: "a@example.com", Password: "segredo"},
		{Username: "a", Email: "not-an-email", Password: "segredo"},
		{Username: "a", Email: "a@example.com", Password: "12345"},
		{Username: "a", Email: "Ana <a@example.com>", Password: "segredo"},
		{Username: strings.Repeat("a", 65), Email: "a@example.com", Password: "segredo"},
	} {
		_, err := f.eng.RegisterUser(f.ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
	assert.Zero(t, f.count(&models.User{}, "email = ?", "a@example.com"))
}

func TestRegisterUserValidationMessages(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.RegisterUser(f.ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "12345"})
	assert.EqualError(t, err, "RegisterUser: password must have at least 6 characters")
	_, err = f.eng.RegisterUser(f.ctx, RegisterInput{Email: "ana@example.com", Password: "segredo"})
	assert.EqualError(t, err, "RegisterUser: username is required")
	_, err = f.eng.RegisterUser(f.ctx, RegisterInput{Username: "ana", Email: "ana", Password: "segredo"})
	assert.EqualError(t, err, "RegisterUser: invalid email address")
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	reg, err := f.eng.RegisterUser(f.ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "segredo"})
	require.NoError(t, err)

	u, err := f.eng.Authenticate(f.ctx, "ANA@example.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)

	_, err = f.eng.Authenticate(f.ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.eng.Authenticate(f.ctx, "nobody@example.com", "segredo")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestChangeRole(t *testing.T) {
	f := newBareFixture(t)
	admin := f.user("admin", models.RoleAdmin)
	student := f.user("student", models.RoleStudent)

	_, err := f.eng.ChangeRole(f.ctx, student.ID, student.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.eng.ChangeRole(f.ctx, admin.ID, student.ID, "dean")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.eng.ChangeRole(f.ctx, admin.ID, 9999, models.RoleProfessor)
	assert.ErrorIs(t, err, ErrNotFound)

	u, err := f.eng.ChangeRole(f.ctx, admin.ID, student.ID, models.RoleProfessor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleProfessor, u.Role)
	assert.Equal(t, models.RoleProfessor, f.reload(student.ID).Role)
}

func TestLeaderboardExcludesAdminsAndCaches(t *testing.T) {
	f := newBareFixture(t)
	admin := f.user("admin", models.RoleAdmin)
	low := f.user("low", models.RoleStudent)
	high := f.user("high", models.RoleProfessor)
	f.setXP(admin.ID, 9000)
	f.setXP(low.ID, 40)
	f.setXP(high.ID, 250)

	board, err := f.eng.Leaderboard(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, LeaderboardEntry{Rank: 1, UserID: high.ID, Username: "high", XP: 250, Level: 5}, board[0])
	assert.Equal(t, "low", board[1].Username)

	f.setXP(low.ID, 1000)
	cached, err := f.eng.Leaderboard(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "high", cached[0].Username)

	top, err := f.eng.Leaderboard(f.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	f.eng.leaderboard.Purge()
	fresh, err := f.eng.Leaderboard(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "low", fresh[0].Username)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", models.RoleStudent)
	fan := f.user("fan", models.RoleStudent)

	post, err := f.eng.CreatePost(f.ctx, author.ID, PostInput{Title: "t", Body: "b"})
	require.NoError(t, err)
	_, err = f.eng.CreateComment(f.ctx, author.ID, post.Post.Pid, "c")
	require.NoError(t, err)
	_, err = f.eng.ToggleLike(f.ctx, fan.ID, post.Post.Pid)
	require.NoError(t, err)

	p, err := f.eng.Profile(f.ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.PostCount)
	assert.Equal(t, int64(1), p.CommentCount)
	assert.Equal(t, int64(2), p.Achievements)
	assert.Equal(t, Level(p.User.XP), p.Level)
	assert.Nil(t, p.Companion)
	require.NotEmpty(t, p.RecentXP)
	assert.Equal(t, ActionLikeReceived, p.RecentXP[0].Action)
	require.Len(t, p.RecentPosts, 1)
	assert.Equal(t, post.Post.Pid, p.RecentPosts[0].Pid)
	assert.Equal(t, 1, p.RecentPosts[0].LikeCount)
	assert.Equal(t, 1, p.RecentPosts[0].CommentCount)

	hidden := f.post(author, "")
	require.NoError(t, f.db.Model(hidden).UpdateColumn("status", models.PostStatusRemoved).Error)
	newer := f.post(author, "")
	p, err = f.eng.Profile(f.ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, p.RecentPosts, 2)
	assert.Equal(t, newer.Pid, p.RecentPosts[0].Pid)
	assert.Equal(t, post.Post.Pid, p.RecentPosts[1].Pid)

	_, err = f.eng.Profile(f.ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newBareFixture(t)
	ana := f.user("ana", models.RoleStudent)
	f.user("bia", models.RoleStudent)

	u, err := f.eng.UpdateProfile(f.ctx, ana.ID, ProfileInput{
		Username: " ana.souza ",
		AboutMe:  "Estudante de química",
		JobTitle: "Monitora",
		LinkedIn: "https://www.linkedin.com/in/ana",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana.souza", u.Username)

	stored := f.reload(ana.ID)
	assert.Equal(t, "ana.souza", stored.Username)
	assert.Equal(t, "Estudante de química", stored.AboutMe)
	assert.Equal(t, "Monitora", stored.JobTitle)
	assert.Equal(t, "https://www.linkedin.com/in/ana", stored.LinkedIn)

	// keeping one's own name is not a conflict
	_, err = f.eng.UpdateProfile(f.ctx, ana.ID, ProfileInput{Username: "ana.souza"})
	require.NoError(t, err)
	assert.Empty(t, f.reload(ana.ID).AboutMe)

	_, err = f.eng.UpdateProfile(f.ctx, ana.ID, ProfileInput{Username: "bia"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	for _, in := range []ProfileInput{
		{Username: ""},
		{Username: "ana", AboutMe: strings.Repeat("x", 501)},
		{Username: "ana", JobTitle: strings.Repeat("x", 101)},
		{Username: "ana", LinkedIn: "not a url"},
	} {
		_, err := f.eng.UpdateProfile(f.ctx, ana.ID, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
	assert.Equal(t, "ana.souza", f.reload(ana.ID).Username)

	_, err = f.eng.UpdateProfile(f.ctx, 9999, ProfileInput{Username: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}
