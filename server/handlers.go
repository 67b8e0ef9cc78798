package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/abaur/rolodex/server/gravatar"
	"github.com/abaur/rolodex/server/logger"
	"github.com/abaur/rolodex/server/mailer"
	"github.com/abaur/rolodex/server/models"
	"github.com/abaur/rolodex/server/work"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const internalServerErrMsg = "Internal Server Error"

var (
	logg     = logger.NewLogger()
	validate *validator.Validate

	// assigned once in Start
	workerPool *work.WorkerPoolAdapter
	mailClient *mailer.ClientWrapper
)

func init() {
	validate = validator.New()
}

type ContactPayload struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Favorite *bool  `json:"favorite" validate:"required"`
}

type SignupPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResendVerificationPayload struct {
	Email string `json:"email" validate:"required,email"`
}

// FavoritePayload is checked for presence of 'favorite' only - a
// deliberate distinction from schema validation, so that PATCH with an
// explicit false still works.
type FavoritePayload struct {
	Favorite *bool `json:"favorite"`
}

// ---------------------------------------------------------------------------------//
// Contact handlers
// --------------------------------------------------------------------------------//

func listContacts(rw http.ResponseWriter, r *http.Request) {
	contacts, err := models.AllContacts()
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"contacts": contacts}, http.StatusOK)
}

func findContact(rw http.ResponseWriter, r *http.Request) {
	contact, err := models.FindContact(mux.Vars(r)["id"])
	if errors.Is(err, models.ErrNotFound) {
		writeErrMsg(rw, "Contact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"contact": contact}, http.StatusOK)
}

func createContact(rw http.ResponseWriter, r *http.Request) {
	payload := ContactPayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrMsg(rw, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeErrMsg(rw, firstValidationError(err), http.StatusBadRequest)
		return
	}

	contact := models.Contact{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Favorite: *payload.Favorite,
	}

	if err := models.CreateContact(&contact); err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"contact": contact}, http.StatusCreated)
}

func replaceContact(rw http.ResponseWriter, r *http.Request) {
	payload := ContactPayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrMsg(rw, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeErrMsg(rw, firstValidationError(err), http.StatusBadRequest)
		return
	}

	contact, err := models.FindContact(mux.Vars(r)["id"])
	if errors.Is(err, models.ErrNotFound) {
		writeErrMsg(rw, "Contact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	err = contact.Update(map[string]interface{}{
		"name":     payload.Name,
		"email":    payload.Email,
		"phone":    payload.Phone,
		"favorite": *payload.Favorite,
	})
	if errors.Is(err, models.ErrNotFound) {
		// The contact can be deleted between the lookup & the update
		writeErrMsg(rw, "Contact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"contact": contact}, http.StatusOK)
}

func deleteContact(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteContact(mux.Vars(r)["id"])
	if errors.Is(err, models.ErrNotFound) {
		writeErrMsg(rw, "Contact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"message": "Contact deleted"}, http.StatusOK)
}

func setContactFavorite(rw http.ResponseWriter, r *http.Request) {
	payload := FavoritePayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrMsg(rw, "invalid request body", http.StatusBadRequest)
		return
	}

	if payload.Favorite == nil {
		writeErrMsg(rw, "missing field favorite", http.StatusBadRequest)
		return
	}

	contact, err := models.FindContact(mux.Vars(r)["id"])
	if errors.Is(err, models.ErrNotFound) {
		writeErrMsg(rw, "Contact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	err = contact.Update(map[string]interface{}{"favorite": *payload.Favorite})
	if errors.Is(err, models.ErrNotFound) {
		// The contact can be deleted between the lookup & the update
		writeErrMsg(rw, "Contact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"contact": contact}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Signup & verification handlers
// --------------------------------------------------------------------------------//

func signup(rw http.ResponseWriter, r *http.Request) {
	payload := SignupPayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrMsg(rw, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeErrMsg(rw, firstValidationError(err), http.StatusBadRequest)
		return
	}

	_, err := models.FindUserBy("email", payload.Email)
	if err == nil {
		writeErrMsg(rw, "Email in use", http.StatusConflict)
		return
	}
	if !errors.Is(err, models.ErrNotFound) {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	verificationToken := uuid.NewString()
	user := models.User{
		Email:             payload.Email,
		Password:          payload.Password,
		AvatarURL:         gravatar.URL(payload.Email),
		VerificationToken: &verificationToken,
	}

	err = models.CreateUser(&user)
	if errors.Is(err, models.ErrEmailInUse) {
		// Two signups raced past the existence check; the unique index
		// on users.email picked the winner.
		writeErrMsg(rw, "Email in use", http.StatusConflict)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	// Fire & forget - a user whose email never arrives can request a
	// resend, so delivery failures don't roll the signup back.
	enqueueVerificationEmail(user.Email, verificationToken)

	writeResponse(rw, map[string]interface{}{
		"message": "Success, user registered",
		"user": map[string]interface{}{
			"email":        user.Email,
			"subscription": user.Subscription,
		},
	}, http.StatusCreated)
}

func resendVerification(rw http.ResponseWriter, r *http.Request) {
	payload := ResendVerificationPayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrMsg(rw, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeErrMsg(rw, firstValidationError(err), http.StatusBadRequest)
		return
	}

	user, err := models.FindUserBy("email", payload.Email)
	if errors.Is(err, models.ErrNotFound) {
		writeErrMsg(rw, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	token, err := user.PendingVerificationToken()
	if errors.Is(err, models.ErrAlreadyVerified) {
		writeErrMsg(rw, "Verification has already been passed", http.StatusConflict)
		return
	}

	// The existing token is reused, not regenerated - links from older
	// emails stay valid until one of them is followed.
	enqueueVerificationEmail(user.Email, token)

	writeResponse(rw, map[string]interface{}{"message": "Verification email sent"}, http.StatusOK)
}

func verifyEmail(rw http.ResponseWriter, r *http.Request) {
	user, err := models.FindUserBy("verification_token", mux.Vars(r)["token"])
	if errors.Is(err, models.ErrNotFound) {
		// Also the replay case: a used token was cleared on first
		// success & can never match again.
		writeErrMsg(rw, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	if err := user.MarkAsVerified(); err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"message": "Verification successful"}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Ops handlers
// --------------------------------------------------------------------------------//

func healthCheck(rw http.ResponseWriter, r *http.Request) {
	stats, err := models.CurrentJobsStats()
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"status": "ok", "jobs": stats}, http.StatusOK)
}

func listJobs(rw http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	jobs, paging, err := models.FetchJobs(page)
	if err != nil {
		writeErrMsg(rw, internalServerErrMsg, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, map[string]interface{}{"jobs": jobs, "paging": paging}, http.StatusOK)
}
