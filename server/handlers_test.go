package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abaur/rolodex/server/mailer"
	"github.com/abaur/rolodex/server/models"
	"github.com/abaur/rolodex/server/work"
	"github.com/abaur/rolodex/shared"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer() *mux.Router {
	models.InitializeTestDb()

	mailClient = mailer.NewClient(
		shared.SendgridConfig{ApiKey: "test-key", Sender: "no-reply@example.com"},
		"http://localhost:3000",
		true,
	)

	// Jobs are only enqueued in handler tests, never processed
	workerPool = work.NewWorkerAdapter("UTC")

	return createRouter()
}

func doRequest(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	body := make(map[string]interface{})
	require.Nil(t, json.NewDecoder(recorder.Body).Decode(&body))

	return body
}

// ---------------------------------------------------------------------------------//
// Contacts
// --------------------------------------------------------------------------------//

func TestCreateAndGetContact(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/contacts",
		`{"name":"Ann", "email":"a@x.com", "phone":"123", "favorite":false}`)
	assert.Equal(t, http.StatusCreated, resp.Code)

	created := decodeBody(t, resp)["contact"].(map[string]interface{})
	assert.NotEmpty(t, created["id"])

	resp = doRequest(router, "GET", fmt.Sprintf("/contacts/%v", created["id"]), "")
	assert.Equal(t, http.StatusOK, resp.Code)

	contact := decodeBody(t, resp)["contact"].(map[string]interface{})
	assert.Equal(t, "Ann", contact["name"])
	assert.Equal(t, "a@x.com", contact["email"])
	assert.Equal(t, "123", contact["phone"])
	assert.Equal(t, false, contact["favorite"])
}

func TestCreateContactValidation(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/contacts",
		`{"email":"a@x.com", "phone":"123", "favorite":false}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "missing required field name", decodeBody(t, resp)["message"])

	resp = doRequest(router, "POST", "/contacts",
		`{"name":"Ann", "email":"not-an-email", "phone":"123", "favorite":false}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "email must be a valid email address", decodeBody(t, resp)["message"])

	resp = doRequest(router, "POST", "/contacts",
		`{"name":"Ann", "email":"a@x.com", "phone":"123"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "missing required field favorite", decodeBody(t, resp)["message"])
}

func TestGetContactNotFound(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "GET", "/contacts/999", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Contact not found", decodeBody(t, resp)["message"])
}

func TestReplaceContact(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/contacts",
		`{"name":"Ann", "email":"a@x.com", "phone":"123", "favorite":false}`)
	id := decodeBody(t, resp)["contact"].(map[string]interface{})["id"]

	resp = doRequest(router, "PUT", fmt.Sprintf("/contacts/%v", id),
		`{"name":"Anna", "email":"anna@x.com", "phone":"456", "favorite":true}`)
	assert.Equal(t, http.StatusOK, resp.Code)

	contact := decodeBody(t, resp)["contact"].(map[string]interface{})
	assert.Equal(t, "Anna", contact["name"])
	assert.Equal(t, "anna@x.com", contact["email"])
	assert.Equal(t, "456", contact["phone"])
	assert.Equal(t, true, contact["favorite"])

	resp = doRequest(router, "PUT", "/contacts/999",
		`{"name":"Anna", "email":"anna@x.com", "phone":"456", "favorite":true}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteContactTwice(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/contacts",
		`{"name":"Ann", "email":"a@x.com", "phone":"123", "favorite":false}`)
	id := decodeBody(t, resp)["contact"].(map[string]interface{})["id"]

	resp = doRequest(router, "DELETE", fmt.Sprintf("/contacts/%v", id), "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Contact deleted", decodeBody(t, resp)["message"])

	resp = doRequest(router, "DELETE", fmt.Sprintf("/contacts/%v", id), "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSetContactFavorite(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/contacts",
		`{"name":"Ann", "email":"a@x.com", "phone":"123", "favorite":false}`)
	id := decodeBody(t, resp)["contact"].(map[string]interface{})["id"]

	// Presence check, not schema validation
	resp = doRequest(router, "PATCH", fmt.Sprintf("/contacts/%v/favorite", id), `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "missing field favorite", decodeBody(t, resp)["message"])

	resp = doRequest(router, "PATCH", fmt.Sprintf("/contacts/%v/favorite", id), `{"favorite":true}`)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, decodeBody(t, resp)["contact"].(map[string]interface{})["favorite"])

	// The partial update leaves every other field untouched
	resp = doRequest(router, "GET", fmt.Sprintf("/contacts/%v", id), "")
	contact := decodeBody(t, resp)["contact"].(map[string]interface{})
	assert.Equal(t, "Ann", contact["name"])
	assert.Equal(t, "a@x.com", contact["email"])
	assert.Equal(t, "123", contact["phone"])

	resp = doRequest(router, "PATCH", "/contacts/999/favorite", `{"favorite":true}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

// ---------------------------------------------------------------------------------//
// Signup & verification
// --------------------------------------------------------------------------------//

func TestSignup(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/signup", `{"email":"dup@x.com", "password":"p"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)

	body := decodeBody(t, resp)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "dup@x.com", user["email"])
	assert.Equal(t, models.DEFAULT_SUBSCRIPTION, user["subscription"])
	assert.NotContains(t, user, "password")

	// Same email again, different password - still a conflict
	resp = doRequest(router, "POST", "/signup", `{"email":"dup@x.com", "password":"other"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "Email in use", decodeBody(t, resp)["message"])
}

func TestSignupValidation(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/signup", `{"email":"not-an-email", "password":"p"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doRequest(router, "POST", "/signup", `{"email":"ok@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "missing required field password", decodeBody(t, resp)["message"])
}

func TestSignupEnqueuesVerificationEmail(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/signup", `{"email":"new@x.com", "password":"p"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)

	jobs, _, err := models.FetchJobs(1)
	assert.Nil(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, VERIFICATION_EMAIL_HANDLER, jobs[0].Handler)
	assert.Contains(t, jobs[0].Args, "new@x.com")
}

func TestVerifyEmail(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/signup", `{"email":"v@x.com", "password":"p"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)

	user, err := models.FindUserBy("email", "v@x.com")
	require.Nil(t, err)
	require.NotNil(t, user.VerificationToken)
	token := *user.VerificationToken

	resp = doRequest(router, "GET", "/verify/"+token, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Verification successful", decodeBody(t, resp)["message"])

	// The token is single-use; replaying it behaves like an unknown token
	resp = doRequest(router, "GET", "/verify/"+token, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "User not found", decodeBody(t, resp)["message"])
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "GET", "/verify/no-such-token", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "User not found", decodeBody(t, resp)["message"])
}

func TestResendVerification(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/signup", `{"email":"r@x.com", "password":"p"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = doRequest(router, "POST", "/resend-verification", `{"email":"r@x.com"}`)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Verification email sent", decodeBody(t, resp)["message"])

	resp = doRequest(router, "POST", "/resend-verification", `{"email":"missing@x.com"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "User not found", decodeBody(t, resp)["message"])
}

func TestResendVerificationAfterVerified(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/signup", `{"email":"done@x.com", "password":"p"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)

	user, err := models.FindUserBy("email", "done@x.com")
	require.Nil(t, err)
	require.Nil(t, user.MarkAsVerified())

	jobsBefore, _, err := models.FetchJobs(1)
	require.Nil(t, err)

	resp = doRequest(router, "POST", "/resend-verification", `{"email":"done@x.com"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "Verification has already been passed", decodeBody(t, resp)["message"])

	// No new delivery job may be enqueued for a verified user
	jobsAfter, _, err := models.FetchJobs(1)
	require.Nil(t, err)
	assert.Len(t, jobsAfter, len(jobsBefore))
}

// ---------------------------------------------------------------------------------//
// Ops
// --------------------------------------------------------------------------------//

func TestHealthCheck(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestListJobs(t *testing.T) {
	router := setupTestServer()

	resp := doRequest(router, "POST", "/signup", `{"email":"jobs@x.com", "password":"p"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = doRequest(router, "GET", "/jobs", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody(t, resp)
	assert.Len(t, body["jobs"], 1)
	assert.Equal(t, float64(1), body["paging"].(map[string]interface{})["total"])
}
