package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

const testTransactionID = "0190f7a2-4444-7000-8000-000000000004"

type mockTransactionService struct {
	getAccountTransactionsFn func(userID, accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn     func(userID, transactionID string) (*models.Transaction, error)
	createTransactionFn      func(userID, accountID string, input services.ManualTransaction) (*models.Transaction, error)
	deleteTransactionFn      func(userID, transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(userID, accountID string, input services.ManualTransaction) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, accountID, input)
	}
	return &models.Transaction{Base: models.Base{ID: testTransactionID}, AccountID: accountID, Amount: input.Amount, Type: input.Type}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getAccountTransactionsFn != nil {
		return m.getAccountTransactionsFn(userID, accountID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	r.Use(injectUserID(testUserID))
	r.GET("/accounts/:id/transactions", handler.GetAccountTransactions)
	r.POST("/transactions", handler.CreateTransaction)
	r.GET("/transactions/:id", handler.GetTransactionByID)
	r.DELETE("/transactions/:id", handler.DeleteTransaction)
	return r
}

func TestTransactionHandler_GetAccountTransactions(t *testing.T) {
	t.Run("returns 200 with transactions", func(t *testing.T) {
		svc := &mockTransactionService{
			getAccountTransactionsFn: func(_, accountID string, _ pagination.PageRequest, _ services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				txs := []models.Transaction{
					{Base: models.Base{ID: testTransactionID}, AccountID: accountID, Amount: decimal.NewFromInt(500), Type: models.TransactionTypeDebit},
				}
				resp := pagination.NewPageResponse(txs, 1, 20, 1)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/transactions", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if len(result["data"].([]interface{})) != 1 {
			t.Errorf("expected 1 transaction, got %v", result["data"])
		}
	})

	t.Run("passes filters to the service", func(t *testing.T) {
		var got services.TransactionFilter
		svc := &mockTransactionService{
			getAccountTransactionsFn: func(_, _ string, _ pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET",
			"/accounts/"+testAccountID+"/transactions?from_date=2024-06-01&to_date=2024-06-30T23:59:59Z&type=credit", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.FromDate == nil || !got.FromDate.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected from_date: %v", got.FromDate)
		}
		if got.ToDate == nil || !got.ToDate.Equal(time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)) {
			t.Errorf("unexpected to_date: %v", got.ToDate)
		}
		if got.Type == nil || *got.Type != models.TransactionTypeCredit {
			t.Errorf("unexpected type: %v", got.Type)
		}
	})

	t.Run("returns 400 on invalid date", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/transactions?from_date=yesterday", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/transactions?type=transfer", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when account not found", func(t *testing.T) {
		svc := &mockTransactionService{
			getAccountTransactionsFn: func(_, _ string, _ pagination.PageRequest, _ services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/transactions", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 200 with transaction", func(t *testing.T) {
		svc := &mockTransactionService{
			getTransactionByIDFn: func(_, id string) (*models.Transaction, error) {
				return &models.Transaction{
					Base:        models.Base{ID: id},
					AccountID:   testAccountID,
					Amount:      decimal.NewFromInt(500),
					Type:        models.TransactionTypeDebit,
					Description: "Swiggy",
				}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["id"] != testTransactionID {
			t.Errorf("expected id %s, got %v", testTransactionID, tx["id"])
		}
		if tx["type"] != "debit" {
			t.Errorf("expected debit, got %v", tx["type"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockTransactionService{
			getTransactionByIDFn: func(_, _ string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})

	t.Run("returns 400 on invalid id", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 and passes the entry through", func(t *testing.T) {
		var gotAccount string
		var got services.ManualTransaction
		svc := &mockTransactionService{
			createTransactionFn: func(_, accountID string, input services.ManualTransaction) (*models.Transaction, error) {
				gotAccount = accountID
				got = input
				return &models.Transaction{
					Base:      models.Base{ID: testTransactionID},
					AccountID: accountID,
					Amount:    input.Amount,
					Type:      input.Type,
					Category:  input.Category,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(svc, audit))

		body := `{"account_id":"` + testAccountID + `","type":"credit","amount":"1200.75","category":"salary","description":"Bonus","date":"2024-03-01"}`
		rec := doRequest(r, "POST", "/transactions", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotAccount != testAccountID {
			t.Errorf("expected account %s, got %s", testAccountID, gotAccount)
		}
		if got.Type != models.TransactionTypeCredit || !got.Amount.Equal(decimal.RequireFromString("1200.75")) {
			t.Errorf("unexpected entry %+v", got)
		}
		if !got.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected date 2024-03-01, got %v", got.Date)
		}
		if got.Category != "salary" || got.Description != "Bonus" {
			t.Errorf("unexpected category/description %q/%q", got.Category, got.Description)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditActionCreateTransaction {
			t.Errorf("expected one CREATE_TRANSACTION audit entry, got %+v", audit.entries)
		}
	})

	t.Run("accepts a numeric amount and leaves date unset", func(t *testing.T) {
		var got services.ManualTransaction
		svc := &mockTransactionService{
			createTransactionFn: func(_, accountID string, input services.ManualTransaction) (*models.Transaction, error) {
				got = input
				return &models.Transaction{Base: models.Base{ID: testTransactionID}, AccountID: accountID}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"`+testAccountID+`","type":"debit","amount":99.5}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Amount.Equal(decimal.RequireFromString("99.5")) {
			t.Errorf("expected amount 99.5, got %s", got.Amount)
		}
		if !got.Date.IsZero() {
			t.Errorf("expected zero date, got %v", got.Date)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"`+testAccountID+`","type":"transfer","amount":10}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid account id", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"42","type":"debit","amount":10}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid date", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"`+testAccountID+`","type":"debit","amount":10,"date":"last week"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns service error and skips audit", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(_, _ string, _ services.ManualTransaction) (*models.Transaction, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(svc, audit))

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"`+testAccountID+`","type":"debit","amount":10}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if len(audit.entries) != 0 {
			t.Errorf("expected no audit entries, got %+v", audit.entries)
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 and audits the deletion", func(t *testing.T) {
		var gotID string
		svc := &mockTransactionService{
			deleteTransactionFn: func(_, transactionID string) error {
				gotID = transactionID
				return nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(svc, audit))

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotID != testTransactionID {
			t.Errorf("expected id %s, got %s", testTransactionID, gotID)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditActionDeleteTransaction {
			t.Errorf("expected one DELETE_TRANSACTION audit entry, got %+v", audit.entries)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockTransactionService{
			deleteTransactionFn: func(_, _ string) error {
				return apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})

	t.Run("returns 400 on invalid id", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
