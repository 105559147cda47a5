package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"levelup-loyalty/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMemberHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectService  bool
		isMember       bool
		expectedStatus int
	}{
		{name: "Institution email", body: `{"email":"alice@duoc.cl"}`, expectService: true, isMember: true, expectedStatus: http.StatusOK},
		{name: "Other email", body: `{"email":"alice@gmail.com"}`, expectService: true, expectedStatus: http.StatusOK},
		{name: "Invalid email", body: `{"email":"not-an-email"}`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMemberService)
			h := NewMemberHandler(svc, zerolog.Nop())

			if tt.expectService {
				svc.On("Register", mock.Anything, "alice", mock.Anything).
					Return(&model.Member{Username: "alice", IsMember: tt.isMember}, nil)
			}

			req := withParams(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body)), "username", "alice")
			w := httptest.NewRecorder()
			h.Register(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectService {
				assert.Contains(t, w.Body.String(), `"isMember":`)
			}
			svc.AssertExpectations(t)
		})
	}
}
