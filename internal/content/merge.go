// Package content renders outbound message bodies from Liquid templates.
package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/osteele/liquid"

	"github.com/ignite/optin-mailer/internal/domain"
)

// ErrNoTemplate is wrapped in a TemplateError when no template is registered
// for a message's origin.
var ErrNoTemplate = errors.New("no template for origin")

// TemplateError reports that a message body could not be produced.
type TemplateError struct {
	Origin domain.Origin
	Err    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("render %s template: %v", e.Origin, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// MergeService renders the template registered for a message's origin.
// Rendering is strict: a template referencing an unknown variable fails
// instead of sending a half-filled email.
type MergeService struct {
	engine     *liquid.Engine
	confirmURL string

	mu        sync.RWMutex
	templates map[domain.Origin]*liquid.Template
}

// NewMergeService creates a merge service. confirmURL is the public confirm
// page; the subscriber's email, hash and workspace are appended as query
// parameters to build confirmation_url.
func NewMergeService(confirmURL string) *MergeService {
	engine := liquid.NewEngine()
	engine.StrictVariables()

	ms := &MergeService{
		engine:     engine,
		confirmURL: confirmURL,
		templates:  make(map[domain.Origin]*liquid.Template),
	}
	ms.registerFilters()
	return ms
}

func (ms *MergeService) registerFilters() {
	// {{ first_name | capitalize }}
	ms.engine.RegisterFilter("capitalize", func(s string) string {
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return s
		}
		return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
	})

	// {{ email | urlencode }}
	ms.engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})
}

// Register parses source and stores it as the template for origin. Syntax
// errors are returned immediately so a bad template fails at startup.
func (ms *MergeService) Register(origin domain.Origin, source string) error {
	tpl, err := ms.engine.ParseString(source)
	if err != nil {
		return &TemplateError{Origin: origin, Err: err}
	}
	ms.mu.Lock()
	ms.templates[origin] = tpl
	ms.mu.Unlock()
	return nil
}

// Render produces the final body for msg.
func (ms *MergeService) Render(ctx context.Context, msg *domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ms.mu.RLock()
	tpl, ok := ms.templates[msg.Origin]
	ms.mu.RUnlock()
	if !ok {
		return "", &TemplateError{Origin: msg.Origin, Err: ErrNoTemplate}
	}

	out, err := tpl.RenderString(ms.bindings(msg))
	if err != nil {
		return "", &TemplateError{Origin: msg.Origin, Err: err}
	}
	return out, nil
}

func (ms *MergeService) bindings(msg *domain.Message) liquid.Bindings {
	b := liquid.Bindings{
		"email":        msg.RecipientEmail,
		"subject":      msg.Subject,
		"message_hash": msg.Hash,
		"workspace_id": msg.WorkspaceID,
		"first_name":   "",
		"last_name":    "",
	}
	if s := msg.Subscriber; s != nil {
		b["first_name"] = s.FirstName
		b["last_name"] = s.LastName
		b["confirmation_url"] = ms.ConfirmationURL(s)
	}
	return b
}

// ConfirmationURL builds the link a subscriber follows to confirm. It always
// carries the subscriber's stored hash, which is what confirm matches on.
func (ms *MergeService) ConfirmationURL(s *domain.Subscriber) string {
	q := url.Values{}
	q.Set("email", s.Email)
	q.Set("hash", s.Hash)
	q.Set("workspace_id", strconv.FormatInt(s.WorkspaceID, 10))

	base := ms.confirmURL
	if base == "" {
		return "?" + q.Encode()
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}
