package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"values_edu_backend/internal/config"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/testutil"
	"values_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:       config.ServerConfig{Mode: "test"},
		JWT:          config.JWTConfig{Secret: testSecret},
		Storage:      config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Gamification: config.GamificationConfig{Timezone: "UTC"},
	}
	clock := testutil.NewClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	return Build(cfg, testutil.NewDB(t), nil, clock.Now)
}

func tokenFor(t *testing.T, subject string, role model.UserRole, classID *uint) string {
	t.Helper()
	token, err := util.GenerateJWT(util.Claims{
		Name:             subject,
		Role:             role,
		ClassID:          classID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "auth|" + subject},
	}, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, a *App, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	w, env := doRequest(t, a, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"database":"up"`)
	assert.Contains(t, string(env.Data), `"redis":"disabled"`)
}

func TestRequiresToken(t *testing.T) {
	a := newTestApp(t)
	w, _ := doRequest(t, a, http.MethodGet, "/api/badges", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doRequest(t, a, http.MethodGet, "/api/badges", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListBadges(t *testing.T) {
	a := newTestApp(t)
	w, env := doRequest(t, a, http.MethodGet, "/api/badges", tokenFor(t, "lina", model.Student, nil), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var badges []model.BadgeDefinition
	require.NoError(t, json.Unmarshal(env.Data, &badges))
	assert.Len(t, badges, 11)
}

func TestCompleteLessonFlow(t *testing.T) {
	a := newTestApp(t)
	classID := uint(5)
	token := tokenFor(t, "made", model.Student, &classID)

	w, env := doRequest(t, a, http.MethodPost, "/api/progress/lessons/honesty-1/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first struct {
		XPEarned         int                     `json:"xp_earned"`
		AlreadyCompleted bool                    `json:"already_completed"`
		BadgesEarned     []model.BadgeDefinition `json:"badges_earned"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, 20, first.XPEarned)
	assert.False(t, first.AlreadyCompleted)
	require.Len(t, first.BadgesEarned, 1)
	assert.Equal(t, "First Step", first.BadgesEarned[0].Name)

	w, env = doRequest(t, a, http.MethodPost, "/api/progress/lessons/honesty-1/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second struct {
		XPEarned         int  `json:"xp_earned"`
		TotalXP          int  `json:"total_xp"`
		AlreadyCompleted bool `json:"already_completed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, 0, second.XPEarned)
	assert.Equal(t, 20, second.TotalXP)

	w, env = doRequest(t, a, http.MethodGet, "/api/classes/5/leaderboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board []model.LeaderboardEntry
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board, 1)
	assert.Equal(t, 20, board[0].TotalXP)
	assert.Equal(t, 1, board[0].Rank)
}

func TestLessonThenQuizFlow(t *testing.T) {
	a := newTestApp(t)
	token := tokenFor(t, "ketut", model.Student, nil)

	w, _ := doRequest(t, a, http.MethodPost, "/api/progress/lessons/kindness-1/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := doRequest(t, a, http.MethodPost, "/api/progress/quizzes/kindness-quiz/complete", token,
		map[string]int{"score": 10, "total_questions": 10})
	require.Equal(t, http.StatusOK, w.Code)

	var quiz struct {
		XPEarned       int  `json:"xp_earned"`
		BonusXP        int  `json:"bonus_xp"`
		TotalXP        int  `json:"total_xp"`
		NewLevel       int  `json:"new_level"`
		LeveledUp      bool `json:"leveled_up"`
		XPToNextLevel  int  `json:"xp_to_next_level"`
		CurrentLevelXP int  `json:"current_level_xp"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quiz))
	assert.Equal(t, 150, quiz.XPEarned)
	assert.Equal(t, 50, quiz.BonusXP)
	assert.Equal(t, 170, quiz.TotalXP)
	assert.Equal(t, 2, quiz.NewLevel)
	assert.True(t, quiz.LeveledUp)
	assert.Equal(t, 160, quiz.XPToNextLevel)
	assert.Equal(t, 70, quiz.CurrentLevelXP)
}

func TestCompleteQuiz_Validation(t *testing.T) {
	a := newTestApp(t)
	token := tokenFor(t, "wayan", model.Student, nil)

	w, _ := doRequest(t, a, http.MethodPost, "/api/progress/quizzes/q1/complete", token,
		map[string]int{"score": 11, "total_questions": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoleGates(t *testing.T) {
	a := newTestApp(t)
	classID := uint(5)
	student := tokenFor(t, "student", model.Student, &classID)
	teacher := tokenFor(t, "teacher", model.Teacher, &classID)

	w, _ := doRequest(t, a, http.MethodGet, "/api/classes/5/analytics", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, a, http.MethodGet, "/api/classes/5/analytics", teacher, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, a, http.MethodGet, "/api/classes/6/analytics", teacher, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, a, http.MethodGet, "/api/classes/6/leaderboard", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, a, http.MethodPost, "/api/admin/virtue-points/reset", teacher, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
