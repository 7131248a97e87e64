package taskboard

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// Error taxonomy. Every failure a handler can surface maps onto exactly one
// kind, carried in the response body as a stable discriminator.

var (
	errNotFound           = errors.New("not found")
	errInvalidCredentials = errors.New("invalid credentials")
	errDuplicateEmail     = errors.New("email already in use")
)

// FieldError is a validation failure scoped to one input field.
type FieldError struct {
	Field  string
	Detail string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

func fieldErr(field, detail string) *FieldError {
	return &FieldError{Field: field, Detail: detail}
}

type forbiddenError struct {
	reason string
}

func (e *forbiddenError) Error() string { return e.reason }

func forbidden(reason string) error { return &forbiddenError{reason: reason} }

type notFoundError struct {
	what string
}

func (e *notFoundError) Error() string { return e.what + " not found" }

func (e *notFoundError) Is(target error) bool { return target == errNotFound }

func notFound(what string) error { return &notFoundError{what: what} }

// respondError translates any error bubbled out of a handler into the
// structured JSON body for its kind. Unknown errors are logged and hidden
// behind a generic 500.
func respondError(c *gin.Context, err error) {
	var fe *FieldError
	var forb *forbiddenError

	switch {
	case errors.As(err, &fe):
		body := gin.H{"error": "validation", "detail": fe.Detail}
		if fe.Field != "" {
			body["field"] = fe.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &forb):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "detail": forb.reason})
	case errors.Is(err, errNotFound), errors.Is(err, pgx.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, errInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "detail": "invalid credentials"})
	case errors.Is(err, errDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": "email", "detail": "Email is already in use."})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "detail": "db error"})
	}
}

// bindError converts a gin binding failure into a field-scoped validation
// error where the validator tells us which field broke.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fieldErr(fe.Field(), "This field is required.")
		case "email":
			return fieldErr(fe.Field(), "E-mail not valid.")
		case "oneof":
			return fieldErr(fe.Field(), fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "datetime":
			return fieldErr(fe.Field(), "must be a date formatted YYYY-MM-DD")
		default:
			return fieldErr(fe.Field(), "invalid value")
		}
	}
	return fieldErr("", "invalid input")
}
