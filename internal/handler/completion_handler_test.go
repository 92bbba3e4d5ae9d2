package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melo-app/melo-api/internal/middleware"
	"github.com/melo-app/melo-api/internal/models"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
)

type completionServiceMock struct {
	code           *models.CompletionCode
	codeErr        error
	work           *models.Work
	completeErr    error
	lastWorkID     string
	lastCode       string
	generateCalled bool
	getCalled      bool
	verifyCalled   bool
}

func (m *completionServiceMock) GenerateCode(ctx context.Context, workID string, claims *models.JWTClaims) (*models.CompletionCode, error) {
	m.generateCalled = true
	m.lastWorkID = workID
	return m.code, m.codeErr
}

func (m *completionServiceMock) GetCode(ctx context.Context, workID string, claims *models.JWTClaims) (*models.CompletionCode, error) {
	m.getCalled = true
	m.lastWorkID = workID
	return m.code, m.codeErr
}

func (m *completionServiceMock) VerifyAndComplete(ctx context.Context, workID, submittedCode string, claims *models.JWTClaims) (*models.Work, error) {
	m.verifyCalled = true
	m.lastWorkID = workID
	m.lastCode = submittedCode
	return m.work, m.completeErr
}

func completionTestContext(t *testing.T, method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, "/works/w1/complete", reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "w1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "emp-1", Role: models.RoleUser})
	return c, w
}

func TestCompletionHandlerGenerateCode(t *testing.T) {
	mockSvc := &completionServiceMock{code: &models.CompletionCode{WorkID: "w1", Code: "123456"}}
	handler := NewCompletionHandler(mockSvc)

	c, w := completionTestContext(t, http.MethodPost, "")
	handler.GenerateCode(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.generateCalled)
	assert.Equal(t, "w1", mockSvc.lastWorkID)
}

func TestCompletionHandlerGetCodeForbidden(t *testing.T) {
	mockSvc := &completionServiceMock{codeErr: appErrors.ErrForbidden}
	handler := NewCompletionHandler(mockSvc)

	c, w := completionTestContext(t, http.MethodGet, "")
	handler.GetCode(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, mockSvc.getCalled)
}

func TestCompletionHandlerComplete(t *testing.T) {
	mockSvc := &completionServiceMock{work: &models.Work{ID: "w1", Status: models.WorkStatusCompleted}}
	handler := NewCompletionHandler(mockSvc)

	c, w := completionTestContext(t, http.MethodPost, `{"code":"123456"}`)
	handler.Complete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.verifyCalled)
	assert.Equal(t, "123456", mockSvc.lastCode)
}

func TestCompletionHandlerCompleteMissingCode(t *testing.T) {
	mockSvc := &completionServiceMock{}
	handler := NewCompletionHandler(mockSvc)

	c, w := completionTestContext(t, http.MethodPost, `{}`)
	handler.Complete(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.verifyCalled)
}

func TestCompletionHandlerCompleteUnauthenticated(t *testing.T) {
	handler := NewCompletionHandler(&completionServiceMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/works/w1/complete", bytes.NewBufferString(`{"code":"123456"}`))
	require.NoError(t, err)
	c.Request = req

	handler.Complete(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
