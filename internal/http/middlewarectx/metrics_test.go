package middlewarectx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/middlewarectx"
)

type ObserverMock struct {
	mock.Mock
}

func (m *ObserverMock) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.Called(method, route, status, elapsed)
}

func TestMetrics(t *testing.T) {
	obs := new(ObserverMock)
	obs.On("ObserveHTTP", http.MethodPut, "/harvest/{id}", http.StatusConflict, mock.AnythingOfType("time.Duration")).Once()
	obs.On("ObserveHTTP", http.MethodGet, "/health", http.StatusOK, mock.AnythingOfType("time.Duration")).Once()

	r := chi.NewRouter()
	r.Use(middlewarectx.Metrics(obs))
	r.Put("/harvest/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/harvest/15", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	obs.AssertExpectations(t)
}
