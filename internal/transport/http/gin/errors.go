package httpgin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kirinyoku/tixhub/internal/service/admin"
	"github.com/kirinyoku/tixhub/internal/service/auth"
	"github.com/kirinyoku/tixhub/internal/service/checkout"
	"github.com/kirinyoku/tixhub/internal/service/query"
	"github.com/kirinyoku/tixhub/internal/service/ticketing"
)

const (
	hydraErrorType     = "hydra:Error"
	violationListType  = "ConstraintViolationList"
	defaultErrorTitle  = "An error occurred"
	violationListTitle = "Validation failed"
)

// Violation is a field level validation failure.
type Violation struct {
	PropertyPath string `json:"propertyPath"`
	Message      string `json:"message"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Type        string      `json:"@type"`
	Title       string      `json:"hydra:title"`
	Description string      `json:"hydra:description"`
	Violations  []Violation `json:"violations,omitempty"`
}

var registerValidatorOnce sync.Once

// registerValidator makes validation errors report JSON field names.
func registerValidator() {
	registerValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func writeError(c *gin.Context, status int, description string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Type:        hydraErrorType,
		Title:       defaultErrorTitle,
		Description: description,
	})
}

func writeViolations(c *gin.Context, violations ...Violation) {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.PropertyPath+": "+v.Message)
	}

	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		Type:        violationListType,
		Title:       violationListTitle,
		Description: strings.Join(msgs, "\n"),
		Violations:  violations,
	})
}

// bindJSON decodes the request body into dst and answers with 400 or 422 on
// failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		violations := make([]Violation, 0, len(verrs))
		for _, fe := range verrs {
			violations = append(violations, Violation{
				PropertyPath: propertyPath(fe),
				Message:      violationMessage(fe),
			})
		}
		writeViolations(c, violations...)
		return false
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		writeError(c, http.StatusBadRequest, "Syntax error in request body.")
	case errors.As(err, &typeErr):
		writeViolations(c, Violation{
			PropertyPath: typeErr.Field,
			Message:      fmt.Sprintf("This value should be of type %s.", typeErr.Type),
		})
	default:
		writeError(c, http.StatusBadRequest, err.Error())
	}

	return false
}

// propertyPath drops the request struct name from the field namespace.
func propertyPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "email":
		return "This value is not a valid email address."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("This value is too short. It should have %s characters or more.", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("This collection should contain %s elements or more.", fe.Param())
		}
		return fmt.Sprintf("This value should be greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("This value is too long. It should have %s characters or less.", fe.Param())
		}
		return fmt.Sprintf("This value should be less than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("This value should be greater than %s.", fe.Param())
	case "datetime":
		return fmt.Sprintf("This value does not match the format %s.", fe.Param())
	default:
		return "This value is not valid."
	}
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		billingErr   *ticketing.BillingError
		notEnoughErr checkout.NotEnoughTicketsError
	)

	switch {
	// auth service
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		writeError(c, http.StatusUnauthorized, "Invalid refresh token.")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(c, http.StatusUnauthorized, "Invalid JWT Token")
	case errors.Is(err, auth.ErrUserExists):
		writeViolations(c, Violation{PropertyPath: "username", Message: "This username or email is already used."})
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(c, http.StatusNotFound, "User not found.")

	// admin service
	case errors.Is(err, admin.ErrVenueConflict):
		writeViolations(c, Violation{PropertyPath: "name", Message: "This value is already used."})
	case errors.Is(err, admin.ErrVenueNotFound):
		writeViolations(c, Violation{PropertyPath: "venue_id", Message: "This venue does not exist."})
	case errors.Is(err, admin.ErrEventNotFound):
		writeError(c, http.StatusNotFound, "Event not found.")

	// ticket generation
	case errors.Is(err, ticketing.ErrAlreadyGenerated):
		writeError(c, http.StatusConflict, "Tickets were already generated for this event.")
	case errors.Is(err, ticketing.ErrNoVenue):
		writeViolations(c, Violation{PropertyPath: "venue_id", Message: "The venue has no seats."})
	case errors.Is(err, ticketing.ErrInvalidEvent):
		writeError(c, http.StatusUnprocessableEntity, "The event cannot be synchronized with billing.")
	case errors.As(err, &billingErr):
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "The billing provider rejected the request.")

	// query service
	case errors.Is(err, query.ErrEventNotFound), errors.Is(err, checkout.ErrEventNotFound):
		writeError(c, http.StatusNotFound, "Event not found.")
	case errors.Is(err, query.ErrVenueNotFound):
		writeError(c, http.StatusNotFound, "Venue not found.")

	// checkout service
	case errors.Is(err, checkout.ErrInvalidQuantity):
		writeViolations(c, Violation{PropertyPath: "quantity", Message: "This value is not valid."})
	case errors.Is(err, checkout.ErrNoReferences):
		writeViolations(c, Violation{PropertyPath: "references", Message: "This collection should contain 1 element or more."})
	case errors.As(err, &notEnoughErr):
		writeError(c, http.StatusConflict, notEnoughErr.Error())
	case errors.Is(err, checkout.ErrHoldNotFound):
		writeError(c, http.StatusConflict, "Some tickets are not held by you or the hold expired.")
	case errors.Is(err, checkout.ErrNothingToCancel):
		writeError(c, http.StatusConflict, "None of the tickets can be cancelled.")

	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "Internal Server Error")
	}
}
