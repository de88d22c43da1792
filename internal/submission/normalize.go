package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AnshRaj112/flags-survey-backend/internal/models"
	"github.com/AnshRaj112/flags-survey-backend/internal/session"
)

// ErrUnauthenticated is returned for sessions that never completed OAuth.
var ErrUnauthenticated = errors.New("session is not authenticated")

// ValidationError describes a payload the normalizer refused.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Problems, "; ")
}

func invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}

// Payload is the raw body of POST /submit.
type Payload struct {
	UserID string          `json:"userId"`
	Flags  json.RawMessage `json:"flags"`
	Form   map[string]any  `json:"form"`
}

// checked is the part of Payload the validator enforces.
type checked struct {
	UserID    string         `validate:"required_if=Anonymous false,max=64"`
	Flags     string         `validate:"required,number,max=80"`
	Form      map[string]any `validate:"required"`
	Anonymous bool
}

// Normalizer turns a session plus a request body into a models.Submission.
type Normalizer struct {
	validate *validator.Validate
	now      func() time.Time
	newID    func() uuid.UUID
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    uuid.New,
	}
}

// Normalize gates on the session token, then parses and sanitizes body. It
// returns ErrUnauthenticated or a *ValidationError on refusal.
func (n *Normalizer) Normalize(sess *session.Session, body io.Reader) (*models.Submission, error) {
	if sess == nil || !sess.Authenticated() {
		return nil, ErrUnauthenticated
	}

	dec := json.NewDecoder(body)
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, invalid("body is not a JSON object: " + err.Error())
	}

	flags, err := flagsString(p.Flags)
	if err != nil {
		return nil, err
	}

	c := checked{
		UserID:    p.UserID,
		Flags:     flags,
		Form:      p.Form,
		Anonymous: Truthy(p.Form["anonymity"]),
	}
	if err := n.validate.Struct(c); err != nil {
		return nil, validationProblems(err)
	}

	bitmask, ok := new(big.Int).SetString(c.Flags, 10)
	if !ok {
		return nil, invalid("flags must be an unsigned decimal integer")
	}

	platforms, err := platformList(p.Form["platformsUsed"])
	if err != nil {
		return nil, err
	}

	answers := make([]models.Answer, len(Questions))
	for i, q := range Questions {
		answers[i] = models.Answer{Key: q.Key, Label: q.Label, Value: Truthy(p.Form[q.Key])}
	}

	return &models.Submission{
		ID:          n.newID(),
		SubmittedAt: n.now().UTC(),
		UserID:      c.UserID,
		Anonymous:   c.Anonymous,
		Flags:       bitmask,
		Answers:     answers,
		Platforms:   SanitizePlatforms(platforms),
	}, nil
}

// flagsString accepts the flags either as a JSON string or a bare JSON integer.
func flagsString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", invalid("flags: " + err.Error())
	}

	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	default:
		return "", invalid("flags must be a numeric string")
	}
}

func platformList(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	default:
		return nil, invalid("form.platformsUsed must be an array")
	}
}

// SanitizePlatforms keeps the entries that exactly match an allowed platform,
// in submitted order. Allowed duplicates are kept; non-strings are dropped.
func SanitizePlatforms(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, allowed := range Platforms {
			if s == allowed {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Truthy applies JavaScript truthiness to a decoded JSON value: false, null,
// zero and "" are falsy, everything else is truthy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	default:
		return true
	}
}

func validationProblems(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid(err.Error())
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "UserID":
			problems = append(problems, "userId is required unless form.anonymity is set")
		case "Flags":
			problems = append(problems, "flags must be an unsigned decimal integer")
		case "Form":
			problems = append(problems, "form is required")
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return invalid(problems...)
}
