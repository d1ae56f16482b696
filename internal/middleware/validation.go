package middleware

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "freightcli/internal/errors"
)

const defaultMaxBodySize = 1 << 20

// Validator decodes JSON request bodies and checks their struct tags
type Validator struct {
	validate    *validator.Validate
	maxBodySize int64
	logger      *slog.Logger
}

// NewValidator creates a validator with the workbook-specific tags
// registered: "workbook" accepts .xlsx/.xlsm paths and "sheetname"
// rejects names Excel does not allow.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()
	v.RegisterValidation("workbook", isWorkbookPath)
	v.RegisterValidation("sheetname", isSheetName)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:    v,
		maxBodySize: defaultMaxBodySize,
		logger:      logger.With(slog.String("component", "validation")),
	}
}

// Decode reads the JSON body of r into v and validates it
func (m *Validator) Decode(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, m.maxBodySize)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apierrors.NewWithDetails(http.StatusRequestEntityTooLarge, apierrors.CodePayloadTooLarge,
				"Request body exceeds maximum allowed size", map[string]int64{"max_size": m.maxBodySize})
		case errors.Is(err, io.EOF):
			return apierrors.New(http.StatusBadRequest, apierrors.CodeInvalidRequest, "Request body is empty")
		}
		return apierrors.InvalidRequestWithError(err)
	}
	return m.Struct(v)
}

// Struct validates v and returns an APIError listing every failed field
func (m *Validator) Struct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	details := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apierrors.ValidationError{
			Field:   fe.Namespace(),
			Message: formatFieldError(fe),
		})
	}
	return apierrors.NewWithDetails(http.StatusBadRequest, apierrors.CodeValidationFailed, "Request validation failed", details)
}

// ContentType rejects bodies that are not one of the given media types
func ContentType(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(ct, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}
			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				apierrors.CodeUnsupportedMediaType,
				"Unsupported content type",
				map[string]interface{}{"content_type": ct, "allowed": contentTypes},
			))
		})
	}
}

func formatFieldError(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "workbook":
		return fmt.Sprintf("%s must be an .xlsx or .xlsm file", field)
	case "sheetname":
		return fmt.Sprintf("%s must be a valid sheet name", field)
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func isWorkbookPath(fl validator.FieldLevel) bool {
	switch strings.ToLower(filepath.Ext(fl.Field().String())) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// isSheetName applies Excel's rules: 1 to 31 characters, none of : \ / ? * [ ]
func isSheetName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	n := len([]rune(name))
	if n == 0 || n > 31 {
		return false
	}
	return !strings.ContainsAny(name, `:\/?*[]`)
}
