package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
)

func newRESTClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewRESTClient(RESTConfig{URL: srv.URL + "/", AnonKey: "anon"})
	require.NoError(t, err)
	return client
}

func TestRESTSelectEncodesQuery(t *testing.T) {
	client := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/assignments", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.c1", q.Get("class_id"))
		assert.Equal(t, "due_date.asc", q.Get("order"))
		assert.Equal(t, "5", q.Get("limit"))
		_, _ = io.WriteString(w, `[{"id":"a1","title":"Essay","max_points":100,"class_id":"c1"}]`)
	})

	var rows []models.Assignment
	err := client.Select(context.Background(), "assignments", Query{}.Eq("class_id", "c1").OrderBy("due_date", true).WithLimit(5), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Essay", rows[0].Title)
}

func TestRESTSingleRowMiss(t *testing.T) {
	client := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, singleObjectMediaType, r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = io.WriteString(w, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`)
	})

	var class models.Class
	err := client.Select(context.Background(), "classes", Query{}.Eq("id", "x").SingleRow(), &class)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestRESTInsertSurfacesProviderMessage(t *testing.T) {
	client := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"23502","message":"null value in column \"title\""}`)
	})

	err := client.Insert(context.Background(), "assignments", map[string]interface{}{"class_id": "c1"}, nil)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, `null value in column "title"`, perr.Message)
}

func TestRESTSignInStoresSessionAndEmits(t *testing.T) {
	client := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "student@example.com", body["email"])
			_, _ = io.WriteString(w, `{"access_token":"tok","refresh_token":"ref","expires_in":3600,"user":{"id":"u2","email":"student@example.com","user_metadata":{"role":"student","full_name":"Sam"}}}`)
		case "/rest/v1/enrollments":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `[]`)
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	var got []models.AuthEvent
	client.Auth().OnAuthStateChange(func(e models.AuthEvent) { got = append(got, e) })

	session, err := client.Auth().SignInWithPassword(context.Background(), "student@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, session.User.Role())
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	var rows []models.Enrollment
	require.NoError(t, client.Select(context.Background(), "enrollments", Query{}, &rows))

	current, err := client.Auth().GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "u2", current.User.ID)

	require.NoError(t, client.Auth().SignOut(context.Background()))
	require.Len(t, got, 2)
	assert.Equal(t, models.AuthEventSignedIn, got[0].Type)
	assert.Equal(t, models.AuthEventSignedOut, got[1].Type)
	assert.Nil(t, got[1].Session)
}

func TestRESTGetSessionWithoutTokenIsEmpty(t *testing.T) {
	client := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL.Path)
	})

	session, err := client.Auth().GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRESTRestoredSessionRejectedByProvider(t *testing.T) {
	client := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"msg":"invalid JWT"}`)
	})

	client.Auth().SetSession("stale")
	session, err := client.Auth().GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRESTUpdateUserEmitsUserUpdated(t *testing.T) {
	client := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body struct {
			Data models.UserMetadata `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Samantha", body.Data.FullName)
		_, _ = io.WriteString(w, `{"id":"u2","email":"s@example.com","user_metadata":{"role":"student","full_name":"Samantha"}}`)
	})
	client.Auth().SetSession("tok")

	var got []models.AuthEvent
	client.Auth().OnAuthStateChange(func(e models.AuthEvent) { got = append(got, e) })

	user, err := client.Auth().UpdateUser(context.Background(), models.UserMetadata{Role: models.RoleStudent, FullName: "Samantha"})
	require.NoError(t, err)
	assert.Equal(t, "Samantha", user.DisplayName())
	require.Len(t, got, 1)
	assert.Equal(t, models.AuthEventUserUpdated, got[0].Type)
	assert.Equal(t, "u2", got[0].Session.User.ID)
}
