package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/joyverse/joyverse-backend/internal/api/apierr"
	"github.com/joyverse/joyverse-backend/internal/api/response"
	"github.com/joyverse/joyverse-backend/internal/factory"
	"github.com/joyverse/joyverse-backend/internal/model"
)

type APISuite struct {
	suite.Suite
	app     *factory.TestApp
	handler http.Handler

	adminToken string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.handler = s.app.Router([]string{"http://localhost:5173"})

	_, err := s.app.AuthService.EnsureAdmin(context.Background(), "admin", "adminpass", "admin@joyverse.test")
	s.Require().NoError(err)
	s.adminToken = s.login("admin", "adminpass")
}

func (s *APISuite) TearDownTest() {
	s.app.Feed.Close()
}

func (s *APISuite) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *APISuite) decode(rr *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func (s *APISuite) errorCode(rr *httptest.ResponseRecorder) string {
	var body apierr.ErrorResponse
	s.decode(rr, &body)
	return body.Error.Code
}

func (s *APISuite) signupChild(username string) response.User {
	rr := s.request(http.MethodPost, "/api/v1/auth/signup", map[string]any{
		"username":       username,
		"password":       "secret123",
		"role":           "user",
		"parent_name":    "Asha",
		"parent_contact": "9876543210",
		"child_age":      7,
	}, "")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	var u response.User
	s.decode(rr, &u)
	return u
}

func (s *APISuite) signupTherapist(username string) {
	rr := s.request(http.MethodPost, "/api/v1/auth/signup", map[string]any{
		"username": username,
		"password": "secret123",
		"role":     "therapist",
		"email":    username + "@clinic.test",
	}, "")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *APISuite) login(username, password string) string {
	rr := s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AuthResponse
	s.decode(rr, &resp)
	s.Require().NotEmpty(resp.Token)
	return resp.Token
}

func (s *APISuite) approvedTherapist(username string) string {
	s.signupTherapist(username)
	rr := s.request(http.MethodPost, "/api/v1/therapists/"+username+"/approve", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	return s.login(username, "secret123")
}

func (s *APISuite) TestHealthCheck() {
	rr := s.request(http.MethodGet, "/api/v1/health", nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"status":"ok"}`, rr.Body.String())
}

func (s *APISuite) TestUnknownRouteIsJSON() {
	rr := s.request(http.MethodGet, "/api/v1/nowhere", nil, "")
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeNotFound, s.errorCode(rr))
}

func (s *APISuite) TestWrongMethodIsJSON405() {
	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/v1/health"},
		{http.MethodGet, "/api/v1/auth/login"},
		{http.MethodGet, "/api/v1/users/kid/emotions"},
		{http.MethodPut, "/api/v1/users/kid"},
	} {
		rr := s.request(tc.method, tc.path, nil, s.adminToken)
		s.Equal(http.StatusMethodNotAllowed, rr.Code, "%s %s", tc.method, tc.path)
		s.Equal(apierr.CodeMethodNotAllowed, s.errorCode(rr), "%s %s", tc.method, tc.path)
	}
}

func (s *APISuite) TestSignupHidesPassword() {
	u := s.signupChild("kid")

	s.Equal("kid", u.Username)
	s.Equal("user", u.Role)
	s.True(u.IsApproved)
	s.Equal(7, u.ChildAge)

	rr := s.request(http.MethodGet, "/api/v1/users/me", nil, s.login("kid", "secret123"))
	s.Equal(http.StatusOK, rr.Code)
	s.NotContains(rr.Body.String(), "password")
	s.NotContains(rr.Body.String(), "$2a$")
}

func (s *APISuite) TestSignupErrors() {
	s.signupChild("kid")

	rr := s.request(http.MethodPost, "/api/v1/auth/signup", map[string]any{
		"username": "kid", "password": "secret123", "role": "user",
		"parent_name": "Asha", "parent_contact": "9876543210", "child_age": 7,
	}, "")
	s.Equal(http.StatusConflict, rr.Code)
	s.Equal(apierr.CodeUsernameTaken, s.errorCode(rr))

	rr = s.request(http.MethodPost, "/api/v1/auth/signup", map[string]any{
		"username": "root2", "password": "secret123", "role": "admin",
	}, "")
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodPost, "/api/v1/auth/signup", map[string]any{
		"username": "doc", "password": "secret123", "role": "therapist",
	}, "")
	s.Equal(http.StatusBadRequest, rr.Code)
	var body apierr.ErrorResponse
	s.decode(rr, &body)
	s.Equal(apierr.CodeValidation, body.Error.Code)
	s.Equal("email", body.Error.Field)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(apierr.CodeInvalidRequest, s.errorCode(rr))
}

func (s *APISuite) TestLoginOutcomes() {
	s.signupChild("kid")
	s.signupTherapist("doc")

	rr := s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "ghost", "password": "x"}, "")
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeUserNotFound, s.errorCode(rr))

	rr = s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "kid", "password": "wrong"}, "")
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Equal(apierr.CodeInvalidCredentials, s.errorCode(rr))

	rr = s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "doc", "password": "secret123"}, "")
	s.Equal(http.StatusForbidden, rr.Code)
	s.Equal(apierr.CodeApprovalPending, s.errorCode(rr))

	rr = s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "doc"}, "")
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *APISuite) TestTokenRequiredAndRevocable() {
	rr := s.request(http.MethodGet, "/api/v1/users/me", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Equal(apierr.CodeUnauthorized, s.errorCode(rr))

	rr = s.request(http.MethodGet, "/api/v1/users/me", nil, "not-a-jwt")
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Equal(apierr.CodeInvalidToken, s.errorCode(rr))

	s.signupChild("kid")
	token := s.login("kid", "secret123")

	rr = s.request(http.MethodPost, "/api/v1/auth/logout", nil, token)
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users/me", nil, token)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *APISuite) TestTokenExpires() {
	s.signupChild("kid")
	token := s.login("kid", "secret123")

	s.app.MockClock.Advance(25 * time.Hour)

	rr := s.request(http.MethodGet, "/api/v1/users/me", nil, token)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *APISuite) TestTherapistApprovalWorkflow() {
	s.signupTherapist("doc")

	rr := s.request(http.MethodGet, "/api/v1/therapists?status=pending", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, rr.Code)
	var list response.UserList
	s.decode(rr, &list)
	s.Require().Equal(1, list.Count)
	s.Equal("pending", list.Users[0].ApprovalStatus)

	rr = s.request(http.MethodPost, "/api/v1/therapists/ghost/approve", nil, s.adminToken)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeTherapistNotFound, s.errorCode(rr))

	rr = s.request(http.MethodPost, "/api/v1/therapists/doc/approve", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, rr.Code)

	// approving twice is harmless
	rr = s.request(http.MethodPost, "/api/v1/therapists/doc/approve", nil, s.adminToken)
	s.Equal(http.StatusOK, rr.Code)

	token := s.login("doc", "secret123")
	rr = s.request(http.MethodGet, "/api/v1/therapists", nil, token)
	s.Equal(http.StatusForbidden, rr.Code)
}

func (s *APISuite) TestChildRecordsObservations() {
	kid := s.signupChild("kid")
	token := s.login("kid", "secret123")

	var last response.Session
	for i, emotion := range []string{"happy", "Sad", "happy"} {
		body := map[string]any{
			"game_name":       "MathJungle",
			"question_number": i + 1,
			"emotion":         emotion,
			"score":           i,
		}
		if i == 2 {
			body["final_score"] = 9
		}
		rr := s.request(http.MethodPost, "/api/v1/sessions/observations", body, token)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		s.decode(rr, &last)
	}

	s.Equal(kid.ID, last.UserID)
	s.Len(last.Questions, 3)
	s.Equal("sad", last.Questions[1].Emotion)
	s.Require().NotNil(last.FinalScore)
	s.Equal(9, *last.FinalScore)
	s.True(last.Completed)

	rr := s.request(http.MethodGet, "/api/v1/sessions/"+last.ID, nil, token)
	s.Equal(http.StatusOK, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users/kid/sessions", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code)
	var sessions response.SessionList
	s.decode(rr, &sessions)
	s.Equal(1, sessions.Count)
}

func (s *APISuite) TestPlaythroughSessionStaysOpenAfterFinalScore() {
	s.signupChild("kid")
	token := s.login("kid", "secret123")

	body := map[string]any{
		"game_name":       "MathJungle",
		"session_id":      "client-run-1",
		"question_number": 1,
		"emotion":         "happy",
		"score":           1,
		"final_score":     4,
	}
	rr := s.request(http.MethodPost, "/api/v1/sessions/observations", body, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var first response.Session
	s.decode(rr, &first)
	s.Require().NotNil(first.FinalScore)
	s.False(first.Completed)

	body["question_number"] = 2
	body["final_score"] = 7
	rr = s.request(http.MethodPost, "/api/v1/sessions/observations", body, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var second response.Session
	s.decode(rr, &second)
	s.Equal(first.ID, second.ID)
	s.Len(second.Questions, 2)
	s.Equal(7, *second.FinalScore)
	s.False(second.Completed)
}

func (s *APISuite) TestChildCannotWriteForAnotherChild() {
	s.signupChild("kid")
	s.signupChild("other")
	token := s.login("kid", "secret123")

	rr := s.request(http.MethodPost, "/api/v1/sessions/observations", map[string]any{
		"user_id": "other", "game_name": "MathJungle", "question_number": 1, "emotion": "happy",
	}, token)
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users/other/report", nil, token)
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users", nil, token)
	s.Equal(http.StatusForbidden, rr.Code)

	// admins may write on a child's behalf
	rr = s.request(http.MethodPost, "/api/v1/sessions/observations", map[string]any{
		"user_id": "other", "game_name": "MathJungle", "question_number": 1, "emotion": "happy",
	}, s.adminToken)
	s.Require().Equal(http.StatusOK, rr.Code)
	var session response.Session
	s.decode(rr, &session)

	rr = s.request(http.MethodGet, "/api/v1/sessions/"+session.ID, nil, token)
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/sessions/nope", nil, token)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeSessionNotFound, s.errorCode(rr))
}

func (s *APISuite) TestTherapistReviewsChild() {
	s.signupChild("kid")
	kidToken := s.login("kid", "secret123")
	docToken := s.approvedTherapist("doc")

	rr := s.request(http.MethodPost, "/api/v1/sessions", map[string]any{
		"game_name":   "SpellingClash",
		"questions":   []map[string]any{{"question_number": 1, "emotion": "happy", "score": 2}, {"question_number": 2, "emotion": "angry", "score": 0}},
		"final_score": 5,
	}, kidToken)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.request(http.MethodPost, "/api/v1/users/kid/suggestions", map[string]string{"game_name": "MathJungle"}, docToken)
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = s.request(http.MethodPost, "/api/v1/users/kid/suggestions", map[string]string{"game_name": "MathJungle"}, kidToken)
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users?role=user&parent_name=Asha&parent_contact=9876543210", nil, docToken)
	s.Require().Equal(http.StatusOK, rr.Code)
	var list response.UserList
	s.decode(rr, &list)
	s.Require().Equal(1, list.Count)
	s.Equal("kid", list.Users[0].Username)

	rr = s.request(http.MethodGet, "/api/v1/users?approved=maybe", nil, docToken)
	s.Equal(http.StatusBadRequest, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users/kid/report", nil, docToken)
	s.Require().Equal(http.StatusOK, rr.Code)
	var report response.Report
	s.decode(rr, &report)

	s.Equal(1, report.TotalSessions)
	s.Equal(5.0, report.AverageScore)
	s.Equal([]string{"MathJungle"}, report.SuggestedGames)
	s.Require().Len(report.EmotionDistribution, 2)
	s.Equal(50.0, report.EmotionDistribution[0].Percent)
	s.Require().Len(report.GamePerformance, 1)
	s.Equal(response.GamePerformance{Game: "SpellingClash", Sessions: 1, AvgScore: 5}, report.GamePerformance[0])
}

func (s *APISuite) TestLegacyProfileLogs() {
	s.signupChild("kid")
	token := s.login("kid", "secret123")

	rr := s.request(http.MethodPost, "/api/v1/users/kid/emotions", map[string]any{
		"game_name": "MathJungle", "question_number": 1, "emotion": "Surprise", "score": 1,
	}, token)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var emotion response.Emotion
	s.decode(rr, &emotion)
	s.Equal("surprise", emotion.Emotion)

	rr = s.request(http.MethodPost, "/api/v1/users/kid/game-plays", map[string]any{
		"game_name": "MathJungle", "final_score": 4,
	}, token)
	s.Require().Equal(http.StatusCreated, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users/me", nil, token)
	var me response.User
	s.decode(rr, &me)
	s.Len(me.Emotions, 1)
	s.Len(me.GamePlays, 1)
}

func (s *APISuite) TestAdminDeletesUser() {
	kid := s.signupChild("kid")
	token := s.login("kid", "secret123")

	rr := s.request(http.MethodDelete, "/api/v1/users/"+kid.ID, nil, token)
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodDelete, "/api/v1/users/"+kid.ID, nil, s.adminToken)
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users/kid", nil, s.adminToken)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeUserNotFound, s.errorCode(rr))
}

func (s *APISuite) TestDeletingUserEndsTheirEmotionFeed() {
	kid := s.signupChild("kid")
	kidToken := s.login("kid", "secret123")

	rr := s.request(http.MethodPost, "/api/v1/users/kid/emotion/current", map[string]string{"emotion": "sad"}, kidToken)
	s.Require().Equal(http.StatusAccepted, rr.Code, rr.Body.String())

	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/users/kid/emotion/stream?access_token="+s.adminToken, nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	id := model.UserID(kid.ID)
	s.Require().Eventually(func() bool { return s.app.Feed.SubscriberCount(id) == 1 }, time.Second, 5*time.Millisecond)

	rr = s.request(http.MethodDelete, "/api/v1/users/"+kid.ID, nil, s.adminToken)
	s.Require().Equal(http.StatusNoContent, rr.Code)

	_, ok := s.app.Feed.Latest(id)
	s.False(ok)
	s.Equal(0, s.app.Feed.SubscriberCount(id))

	// the stream drains what was already written, then ends
	_, err = io.ReadAll(resp.Body)
	s.NoError(err)
}

func (s *APISuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Equal("http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func (s *APISuite) TestEmotionStream() {
	s.signupChild("kid")
	s.signupChild("other")
	kidToken := s.login("kid", "secret123")
	otherToken := s.login("other", "secret123")

	rr := s.request(http.MethodPost, "/api/v1/users/kid/emotion/current", map[string]string{"emotion": "happy"}, otherToken)
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/users/kid/emotion/stream", nil, otherToken)
	s.Equal(http.StatusForbidden, rr.Code)

	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/users/kid/emotion/stream?access_token="+s.adminToken, nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			s.Require().NoError(err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "" && event != "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	event, _ := readEvent()
	s.Equal("connected", event)

	rr = s.request(http.MethodPost, "/api/v1/users/kid/emotion/current", map[string]string{"emotion": "Happy", "game_name": "MathJungle"}, kidToken)
	s.Require().Equal(http.StatusAccepted, rr.Code, rr.Body.String())

	event, data := readEvent()
	s.Equal("emotion", event)
	s.Contains(data, `"emotion":"happy"`)
	s.Contains(data, `"game_name":"MathJungle"`)
}
