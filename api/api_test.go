package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"barberpos/internal/sales"
)

func initRoutesTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	storage := sales.NewLocalStorage()
	storage.AddUser(&sales.User{ID: 7, FirstName: "Graciela", LastName: "Caceres"})
	storage.AddProduct(&sales.Product{ID: 3, Name: "Pomade", Stock: decimal.NewFromInt(10)})
	storage.AddProduct(&sales.Product{ID: 5, Name: "Razor", Stock: decimal.NewFromInt(4)})

	logger := zaptest.NewLogger(t)
	salesService := sales.NewService(storage, nil, logger)
	InitRoutes(router, salesService, logger)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestSalesFullFlow walks the whole surface: register, list, get, update,
// lifecycle toggles and delete.
func TestSalesFullFlow(t *testing.T) {
	router := initRoutesTest(t)

	var saleID int64
	var firstItemID int64

	t.Run("POST_RegisterSale", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{
			"user_id": 7,
			"items": []map[string]any{
				{"product_id": 3, "quantity": 2, "unit_price": 10.0},
				{"product_id": 5, "quantity": 1, "unit_price": 25.0},
			},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		var created sales.Sale
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.NotZero(t, created.ID)
		assert.Equal(t, sales.StatusActive, created.Status)
		assert.True(t, created.TotalAmount.Equal(decimal.NewFromFloat(45.0)),
			"expected total 45, got %s", created.TotalAmount)
		require.Len(t, created.Items, 2)

		saleID = created.ID
		firstItemID = created.Items[0].ID
	})
	require.NotZero(t, saleID)

	t.Run("POST_InsufficientStock", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{
			"user_id": 7,
			"items": []map[string]any{
				{"product_id": 5, "quantity": 99, "unit_price": 25.0},
			},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	})

	t.Run("POST_UnknownUser", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{
			"user_id": 99,
			"items": []map[string]any{
				{"product_id": 3, "quantity": 1, "unit_price": 10.0},
			},
		})
		assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	})

	t.Run("GET_ListSales", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var all []sales.Sale
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
		require.Len(t, all, 1)
		assert.Equal(t, "Graciela Caceres", all[0].StaffFullName)
		assert.Equal(t, "Graciela Caceres", all[0].CustomerFullName)
	})

	t.Run("GET_SaleByID", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, fmt.Sprintf("/sales/%d", saleID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var sale sales.Sale
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
		assert.Equal(t, saleID, sale.ID)

		w = doJSON(router, http.MethodGet, "/sales/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PUT_UpdateSale", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, fmt.Sprintf("/sales/%d", saleID), map[string]any{
			"user_id": 7,
			"items": []map[string]any{
				{"id": firstItemID, "product_id": 3, "quantity": 3, "unit_price": 10.0},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated sales.Sale
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		require.Len(t, updated.Items, 1)
		assert.True(t, updated.TotalAmount.Equal(decimal.NewFromFloat(30.0)),
			"expected total 30, got %s", updated.TotalAmount)
		assert.Equal(t, sales.StatusActive, updated.Status)
	})

	t.Run("PUT_DeactivateThenConflict", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, fmt.Sprintf("/sales/%d/deactivate", saleID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var sale sales.Sale
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
		assert.Equal(t, sales.StatusInactive, sale.Status)

		w = doJSON(router, http.MethodPut, fmt.Sprintf("/sales/%d/deactivate", saleID), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("PUT_ActivateThenConflict", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, fmt.Sprintf("/sales/%d/activate", saleID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = doJSON(router, http.MethodPut, fmt.Sprintf("/sales/%d/activate", saleID), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("DELETE_Sale", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, fmt.Sprintf("/sales/%d", saleID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(router, http.MethodGet, fmt.Sprintf("/sales/%d", saleID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doJSON(router, http.MethodDelete, fmt.Sprintf("/sales/%d", saleID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBadRequests(t *testing.T) {
	router := initRoutesTest(t)

	w := doJSON(router, http.MethodGet, "/sales/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString("{broken"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPing(t *testing.T) {
	router := initRoutesTest(t)

	w := doJSON(router, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}
