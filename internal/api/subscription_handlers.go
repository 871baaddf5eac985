package api

import (
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ignite/optin-mailer/internal/pkg/httputil"
	"github.com/ignite/optin-mailer/internal/pkg/logger"
	"github.com/ignite/optin-mailer/internal/service/subscription"
)

// Subscribe registers an email address for a workspace and sends the
// confirmation email when needed. Responds 200 with an empty body.
//
//	POST /api/subscribe {email, workspace_id, first_name?, last_name?}
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.DecodeFields(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var v validator
	email := v.email(fields, "email")
	workspaceID := v.requiredInt(fields, "workspace_id")
	firstName := v.optionalString(fields, "first_name", maxFieldLength)
	lastName := v.optionalString(fields, "last_name", maxFieldLength)
	if v.failed() {
		httputil.ValidationFailed(w, v.errors)
		return
	}

	in := subscription.SubscribeInput{
		WorkspaceID: workspaceID,
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
	}
	if err := h.subscriptions.Subscribe(r.Context(), in, h.now()); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Status(w, http.StatusOK)
}

// Confirm clears the pending flag of the subscriber matching email and
// hash. Responds 200 on a match and 400 otherwise.
//
//	POST /api/confirm {email, hash, workspace_id, tag_id?}
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.DecodeFields(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var v validator
	email := v.email(fields, "email")
	hash := v.required(fields, "hash")
	workspaceID := v.requiredInt(fields, "workspace_id")
	tagID := v.nullableInt(fields, "tag_id")
	if v.failed() {
		httputil.ValidationFailed(w, v.errors)
		return
	}

	ok, err := h.subscriptions.Confirm(r.Context(), subscription.ConfirmInput{
		WorkspaceID: workspaceID,
		Email:       email,
		Hash:        hash,
		TagID:       tagID,
	}, h.now())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !ok {
		logger.Info("Confirmation did not match a subscriber", "workspace_id", workspaceID, "email", email)
		httputil.Status(w, http.StatusBadRequest)
		return
	}
	httputil.Status(w, http.StatusOK)
}

// maxFieldLength matches the VARCHAR(255) subscriber columns.
const maxFieldLength = 255

// validator collects the first failure per field.
type validator struct {
	errors map[string]string
}

func (v *validator) fail(field, msg string) {
	if v.errors == nil {
		v.errors = make(map[string]string)
	}
	if _, ok := v.errors[field]; !ok {
		v.errors[field] = msg
	}
}

func (v *validator) failed() bool { return len(v.errors) > 0 }

func (v *validator) required(fields map[string]string, name string) string {
	val := strings.TrimSpace(fields[name])
	if val == "" {
		v.fail(name, "The "+humanize(name)+" field is required.")
	}
	return val
}

func (v *validator) email(fields map[string]string, name string) string {
	val := v.required(fields, name)
	if val == "" {
		return ""
	}
	if utf8.RuneCountInString(val) > maxFieldLength {
		v.fail(name, "The "+humanize(name)+" may not be greater than "+strconv.Itoa(maxFieldLength)+" characters.")
		return ""
	}
	addr, err := mail.ParseAddress(val)
	if err != nil || addr.Address != val {
		v.fail(name, "The "+humanize(name)+" must be a valid email address.")
		return ""
	}
	return val
}

func (v *validator) requiredInt(fields map[string]string, name string) int64 {
	val := v.required(fields, name)
	if val == "" {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n <= 0 {
		v.fail(name, "The "+humanize(name)+" must be a positive integer.")
		return 0
	}
	return n
}

func (v *validator) nullableInt(fields map[string]string, name string) *int64 {
	val := strings.TrimSpace(fields[name])
	if val == "" {
		return nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		v.fail(name, "The "+humanize(name)+" must be an integer.")
		return nil
	}
	return &n
}

func (v *validator) optionalString(fields map[string]string, name string, max int) string {
	val := strings.TrimSpace(fields[name])
	if utf8.RuneCountInString(val) > max {
		v.fail(name, "The "+humanize(name)+" may not be greater than "+strconv.Itoa(max)+" characters.")
		return ""
	}
	return val
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
