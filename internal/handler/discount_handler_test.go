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

func TestDiscountHandler_Scan(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockReturn     *model.DiscountGrant
		mockError      error
		expectService  bool
		expectedStatus int
	}{
		{
			name:           "Redeems code",
			body:           `{"content":"LEVELUP:15:Descuento gamer"}`,
			mockReturn:     &model.DiscountGrant{ID: 1, Code: "LEVELUP:15:Descuento gamer", Percentage: 15},
			expectService:  true,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Already scanned",
			body:           `{"content":"LEVELUP:15:Descuento gamer"}`,
			mockError:      model.ErrDuplicateDiscount,
			expectService:  true,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Blank content",
			body:           `{"content":"   "}`,
			mockError:      model.ErrEmptyScan,
			expectService:  true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing content",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDiscountService)
			h := NewDiscountHandler(svc, zerolog.Nop())

			if tt.expectService {
				if tt.mockReturn != nil {
					svc.On("AddFromScan", mock.Anything, "alice", mock.Anything).Return(tt.mockReturn, nil)
				} else {
					svc.On("AddFromScan", mock.Anything, "alice", mock.Anything).Return(nil, tt.mockError)
				}
			}

			req := withParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)), "username", "alice")
			w := httptest.NewRecorder()
			h.Scan(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestDiscountHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		activeOnly     bool
		expectService  bool
		expectedStatus int
	}{
		{name: "All", query: "", activeOnly: false, expectService: true, expectedStatus: http.StatusOK},
		{name: "Active only", query: "?active=true", activeOnly: true, expectService: true, expectedStatus: http.StatusOK},
		{name: "Bad flag", query: "?active=maybe", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDiscountService)
			h := NewDiscountHandler(svc, zerolog.Nop())

			if tt.expectService {
				svc.On("List", mock.Anything, "alice", tt.activeOnly).Return(&model.DiscountList{ActiveCount: 1}, nil)
			}

			w := httptest.NewRecorder()
			h.List(w, withParams(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), "username", "alice"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestDiscountHandler_MarkUsedAndDelete(t *testing.T) {
	svc := new(MockDiscountService)
	h := NewDiscountHandler(svc, zerolog.Nop())

	svc.On("MarkUsed", mock.Anything, "alice", int64(1)).Return(nil)
	svc.On("Delete", mock.Anything, "alice", int64(2)).Return(model.ErrDiscountNotFound)

	w := httptest.NewRecorder()
	h.MarkUsed(w, withParams(httptest.NewRequest(http.MethodPost, "/", nil), "username", "alice", "id", "1"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.Delete(w, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "username", "alice", "id", "2"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.AssertExpectations(t)
}
