package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/repository"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetOrder(ctx context.Context, id int64) (*OrderDetails, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OrderDetails), args.Error(1)
}

func (m *MockOrderRepository) GetOrders(ctx context.Context, qb repository.QueryBuilder) ([]models.Order, error) {
	args := m.Called(qb.BuildConditions(nil))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func setupRouter(handler *OrderHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api")
	group.Use(func(c *gin.Context) {
		c.Set("userID", 3)
		c.Set("role", "operator")
		c.Next()
	})
	handler.RegisterRoutes(group)
	return router
}

func TestGetOrder(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(m *MockOrderRepository)
		expectedStatus int
	}{
		{
			name: "order with planned items",
			path: "/api/orders/7",
			setupMock: func(m *MockOrderRepository) {
				m.On("GetOrder", int64(7)).Return(&OrderDetails{
					Order: models.Order{ID: 7, OrderNumber: "2023080205", Status: metadata.StatusSkidBuilt, SkidBuildConfirmation: "SB-1"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid id",
			path:           "/api/orders/abc",
			setupMock:      func(m *MockOrderRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown order",
			path: "/api/orders/8",
			setupMock: func(m *MockOrderRepository) {
				m.On("GetOrder", int64(8)).Return(nil, &custom_error.NotFoundError{Resource: "order", ID: int64(8)})
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOrderRepository)
			tt.setupMock(repo)
			router := setupRouter(NewHandler(repo, zap.NewNop()))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			repo.AssertExpectations(t)
		})
	}
}

func TestGetOrdersFilters(t *testing.T) {
	t.Run("passes non-empty filters", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("GetOrders", mock.MatchedBy(func(conditions goqu.Ex) bool {
			_, hasDock := conditions["dock_code"]
			return conditions["route_number"] == "IDVV01" && conditions["status"] == "skid_built" && !hasDock
		})).Return([]models.Order{{ID: 7}}, nil)
		router := setupRouter(NewHandler(repo, zap.NewNop()))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders?route_number=IDVV01&status=skid_built", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		repo := new(MockOrderRepository)
		router := setupRouter(NewHandler(repo, zap.NewNop()))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders?status=lost", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		repo.AssertNotCalled(t, "GetOrders", mock.Anything)
	})
}
