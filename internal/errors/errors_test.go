package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    NewAppError(ErrTypeConfig, "bad header row", nil),
			wantMessage: "[CONFIG] bad header row",
		},
		{
			name:        "error with cause",
			appError:    NewParsingError("failed to read sheet", fmt.Errorf("zip: not a valid zip file")),
			wantMessage: "[PARSING] failed to read sheet: zip: not a valid zip file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestNoValidDataError(t *testing.T) {
	err := NoValidDataError(map[string]int{"missing_date": 3})

	assert.True(t, stderrors.Is(err, ErrNoValidData))
	assert.Equal(t, ErrTypeNoValidData, err.Type)
	assert.Equal(t, 3, err.Context["missing_date"])
	assert.True(t, IsUserError(fmt.Errorf("clean: %w", err)))
}

func TestStructureError(t *testing.T) {
	err := NewStructureError("clean", "发货日期")

	var se *StructureError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, "clean", se.Stage)
	assert.Equal(t, "发货日期", se.Column)
	assert.Contains(t, err.Error(), "发货日期")
	assert.True(t, IsUserError(err))
}

func TestAggregationError(t *testing.T) {
	err := NewAggregationError("cost_analysis", "运费")

	var ae *AggregationError
	require.True(t, stderrors.As(err, &ae))
	assert.Equal(t, "cost_analysis", ae.Aggregate)
	assert.Equal(t, ErrTypeAggregation, err.Type)
	assert.False(t, IsUserError(err))
	assert.Contains(t, ae.Error(), `column "运费" is absent`)

	empty := NewEmptyAggregationError("summary", "table has no rows")
	require.True(t, stderrors.As(empty, &ae))
	assert.Empty(t, ae.Column)
	assert.Equal(t, "cannot compute summary: table has no rows", ae.Error())
	assert.Equal(t, "table has no rows", empty.Context["reason"])
}

func TestErrorToProblem(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"no valid data", NoValidDataError(nil), http.StatusUnprocessableEntity, TypeNoValidData},
		{"structure", NewStructureError("clean", "重量"), http.StatusUnprocessableEntity, TypeTableStructure},
		{"aggregation", NewAggregationError("summary", "预估利润"), http.StatusUnprocessableEntity, TypeAggregation},
		{"api error", ErrAnalysisNotFound, http.StatusNotFound, TypeNotFound},
		{"not found app error", NewNotFoundError("sheet"), http.StatusNotFound, TypeNotFound},
		{"parsing app error", NewParsingError("bad zip", nil), http.StatusUnprocessableEntity, TypeWorkbookUnreadable},
		{"validation app error", NewAppValidationError("no sheets selected"), http.StatusBadRequest, TypeValidation},
		{"storage app error", NewStorageError("disk full", nil), http.StatusInternalServerError, TypeInternal},
		{"queue full", ErrQueueFull, http.StatusServiceUnavailable, TypeRateLimit},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, "/api/v1/analyses", p.Instance)
		})
	}
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("trace_id", "abc")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "abc", out["trace_id"])
	assert.Equal(t, float64(404), out["status"])
	assert.NotContains(t, out, "detail")
}

func TestHandleError_WritesProblem(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sheets", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, NoValidDataError(nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), TypeNoValidData)
}

func TestAppError_IsMatchesType(t *testing.T) {
	err := fmt.Errorf("load: %w", NewNotFoundError("sheet 3月"))

	assert.True(t, stderrors.Is(err, &AppError{Type: ErrTypeNotFound}))
	assert.False(t, stderrors.Is(err, &AppError{Type: ErrTypeStorage}))
	assert.False(t, stderrors.Is(err, &AppError{Type: ErrTypeNotFound, Message: "other"}))
}

func TestErrorType_Status(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrTypeValidation.Status())
	assert.Equal(t, http.StatusNotFound, ErrTypeNotFound.Status())
	assert.Equal(t, http.StatusUnprocessableEntity, ErrTypeParsing.Status())
	assert.Equal(t, http.StatusInternalServerError, ErrTypeStorage.Status())
	assert.Equal(t, http.StatusInternalServerError, ErrTypeConfig.Status())
}

func TestAppError_LogAttrs(t *testing.T) {
	err := NewStorageError("failed to write csv", nil).
		WithContext("sheet", "4月").
		WithContext("path", "/out/4月.csv")

	attrs := err.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, "error_type", attrs[0].Key)
	assert.Equal(t, "STORAGE", attrs[0].Value.String())
	assert.Equal(t, "path", attrs[1].Key)
	assert.Equal(t, "sheet", attrs[2].Key)
}

func TestAPIError_ProblemType(t *testing.T) {
	tests := []struct {
		err  *APIError
		want string
	}{
		{ErrQueueFull, TypeRateLimit},
		{ErrRateLimitExceeded, TypeRateLimit},
		{ErrAnalysisNotReady, TypeConflict},
		{ErrAnalysisFinished, TypeConflict},
		{ErrValidation("file", "required"), TypeValidation},
		{NotFoundError("artifact pdf"), TypeNotFound},
		{ErrWebSocketUpgrade, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.ErrorCode, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.ProblemType())
		})
	}
}

func TestAPIError_WithStatus(t *testing.T) {
	err := ErrWebSocketUpgrade.WithStatus(http.StatusForbidden, "origin not allowed")

	assert.Equal(t, http.StatusForbidden, err.StatusCode)
	assert.Equal(t, CodeWebSocketUpgrade, err.ErrorCode)
	assert.Equal(t, "origin not allowed", err.Details)
	assert.Equal(t, http.StatusInternalServerError, ErrWebSocketUpgrade.StatusCode)
}
