package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/rewards/internal/handlers/balance"
	"github.com/GlebRadaev/rewards/internal/handlers/catalog"
	"github.com/GlebRadaev/rewards/internal/handlers/orders"
	"github.com/GlebRadaev/rewards/internal/service"
	"github.com/GlebRadaev/rewards/pkg/auth"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)

	services := &service.Services{
		OrderService:   orders.NewMockService(ctrl),
		LedgerService:  balance.NewMockService(ctrl),
		CatalogService: catalog.NewMockService(ctrl),
	}

	h := New(services)
	assert.NotNil(t, h.OrderHandler)
	assert.NotNil(t, h.BalanceHandler)
	assert.NotNil(t, h.CatalogHandler)
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestInitRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)

	orderHandler := NewMockOrderHandler(ctrl)
	balanceHandler := NewMockBalanceHandler(ctrl)
	catalogHandler := NewMockCatalogHandler(ctrl)

	orderHandler.EXPECT().AddOrder(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	orderHandler.EXPECT().GetOrders(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	orderHandler.EXPECT().GetOrder(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	orderHandler.EXPECT().GetOrderByNumber(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	orderHandler.EXPECT().GetQueue(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	orderHandler.EXPECT().Approve(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	orderHandler.EXPECT().Fulfill(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	orderHandler.EXPECT().Cancel(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	balanceHandler.EXPECT().GetBalance(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	balanceHandler.EXPECT().GetTransactions(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	balanceHandler.EXPECT().AwardPoints(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	catalogHandler.EXPECT().GetItems(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	catalogHandler.EXPECT().GetItem(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	catalogHandler.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()
	catalogHandler.EXPECT().Restock(gomock.Any(), gomock.Any()).Do(ok).AnyTimes()

	h := &Handlers{
		OrderHandler:   orderHandler,
		BalanceHandler: balanceHandler,
		CatalogHandler: catalogHandler,
	}

	jwt := auth.NewJWTService("test-secret")
	router := chi.NewRouter()
	h.InitRoutes(router, jwt)

	token := func(role auth.Role) string {
		tok, err := jwt.GenerateJWT(uuid.New(), role, time.Now().Add(time.Hour))
		require.NoError(t, err)
		return tok
	}
	studentToken := token(auth.RoleStudent)
	teacherToken := token(auth.RoleTeacher)

	id := uuid.New().String()
	tests := []struct {
		method string
		url    string
		token  string
		status int
	}{
		{"POST", "/orders", "", http.StatusUnauthorized},
		{"GET", "/orders", "garbage", http.StatusUnauthorized},
		{"POST", "/orders", studentToken, http.StatusOK},
		{"GET", "/orders", studentToken, http.StatusOK},
		{"GET", "/orders/" + id, studentToken, http.StatusOK},
		{"GET", "/orders/number/123456789031", studentToken, http.StatusOK},
		{"POST", "/orders/" + id + "/cancel", studentToken, http.StatusOK},
		{"POST", "/orders/" + id + "/approve", studentToken, http.StatusForbidden},
		{"POST", "/orders/" + id + "/approve", teacherToken, http.StatusOK},
		{"POST", "/orders/" + id + "/fulfill", studentToken, http.StatusForbidden},
		{"POST", "/orders/" + id + "/fulfill", teacherToken, http.StatusOK},
		{"GET", "/admin/orders", studentToken, http.StatusForbidden},
		{"GET", "/admin/orders", teacherToken, http.StatusOK},
		{"GET", "/accounts/" + id + "/balance", studentToken, http.StatusOK},
		{"GET", "/accounts/" + id + "/transactions", studentToken, http.StatusOK},
		{"POST", "/accounts/" + id + "/transactions", studentToken, http.StatusForbidden},
		{"POST", "/accounts/" + id + "/transactions", teacherToken, http.StatusOK},
		{"GET", "/items", studentToken, http.StatusOK},
		{"GET", "/items/" + id, studentToken, http.StatusOK},
		{"POST", "/items", studentToken, http.StatusForbidden},
		{"POST", "/items", teacherToken, http.StatusOK},
		{"POST", "/items/" + id + "/restock", studentToken, http.StatusForbidden},
		{"POST", "/items/" + id + "/restock", teacherToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
