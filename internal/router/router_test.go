package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/errors"
	"storefront/internal/handler"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"
)

const testSecret = "router-test-secret"

type testServer struct {
	e     *echo.Echo
	repos *repository.Repositories
	jwt   *auth.JWTService
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:            testSecret,
		TokenTTL:             time.Hour,
		CategoryDeletePolicy: config.DeleteRestrict,
		AuthRateLimit:        0,
		StorageDriver:        "local",
		StorageLocalRoot:     t.TempDir(),
		StoragePublicURL:     "/uploads",
	}
	if mutate != nil {
		mutate(cfg)
	}

	gormDB, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	repos := repository.NewRepositories(gormDB)
	tx := repository.NewTransactor(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	disk, err := storage.New(context.Background(), cfg)
	require.NoError(t, err)

	e := echo.New()
	Register(e, cfg, jwtService, auth.NewGate(repos.Users), Handlers{
		Auth:       handler.NewAuthHandler(service.NewAuthService(repos.Users, jwtService)),
		Categories: handler.NewCategoryHandler(service.NewCategoryService(repos, tx, nil, time.Minute, cfg.CategoryDeletePolicy)),
		Products:   handler.NewProductHandler(service.NewProductService(repos, tx, nil, time.Minute, disk)),
		Audit:      handler.NewAuditHandler(service.NewAuditService(repos.AuditLogs)),
		Users:      handler.NewUserHandler(service.NewUserDirectory(repos.Users, nil)),
		Seed:       handler.NewSeedHandler(service.NewCatalogSeeder(tx)),
	})

	return &testServer{e: e, repos: repos, jwt: jwtService}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) signup(t *testing.T, email string, role model.Role) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": strings.Split(email, "@")[0],
		"email":    email,
		"password": "pw-" + email,
		"role":     string(role),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.AuthResponse](t, rec).Token
}

func TestEndToEnd_ManagerCreatesCategoryCustomerIsForbidden(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "m", "email": "m@x.com", "password": "p", "role": "store_manager",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	signup := decode[handler.AuthResponse](t, rec)
	assert.Equal(t, "User created successfully", signup.Message)
	assert.Equal(t, model.RoleStoreManager, signup.Role)
	assert.NotZero(t, signup.UserID)
	assert.NotEmpty(t, signup.Token)

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "m@x.com", "password": "p"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[handler.AuthResponse](t, rec)
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, signup.UserID, login.UserID)

	rec = s.do(t, http.MethodPost, "/categories", login.Token, map[string]string{"name": "Drinks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[handler.CreateCategoryResponse](t, rec)
	assert.Equal(t, "Category created successfully", created.Message)

	rec = s.do(t, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Category](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.CategoryID, list[0].ID)
	assert.Equal(t, "Drinks", list[0].Name)
	assert.Nil(t, list[0].Description)

	customer := s.signup(t, "c@x.com", model.RoleCustomer)
	rec = s.do(t, http.MethodPost, "/categories", customer, map[string]string{"name": "Snacks"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[errors.ErrorResponse](t, rec)
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Equal(t, "unauthorized access", body.Error)

	rec = s.do(t, http.MethodGet, "/categories", "", nil)
	assert.Len(t, decode[[]model.Category](t, rec), 1)
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "a@x.com", model.RoleCustomer)

	rec := s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "again", "email": "a@x.com", "password": "p", "role": "customer",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "USER_ALREADY_EXISTS", decode[errors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "x", "email": "x@x.com", "password": "p", "role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "y@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/signup", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	wrongPassword := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "nope"})
	unknownEmail := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMutationsRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/categories"},
		{http.MethodPut, "/categories/1"},
		{http.MethodDelete, "/categories/1"},
		{http.MethodPost, "/products"},
		{http.MethodPut, "/products/1"},
		{http.MethodDelete, "/products/1"},
	} {
		rec := s.do(t, tc.method, tc.path, "", map[string]string{"name": "x"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "UNAUTHENTICATED", decode[errors.ErrorResponse](t, rec).Code)
	}

	rec := s.do(t, http.MethodPost, "/categories", "not-a-jwt", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := auth.NewJWTService("some-other-secret", time.Hour)
	forged, err := other.GenerateToken("m@x.com", model.RoleAdmin)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/categories", forged, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMutationsRejectedWithoutSideEffects(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	manager := s.signup(t, "m@x.com", model.RoleStoreManager)
	customer := s.signup(t, "c@x.com", model.RoleCustomer)

	rec := s.do(t, http.MethodPost, "/categories", manager, map[string]string{"name": "Drinks"})
	require.Equal(t, http.StatusCreated, rec.Code)
	categoryID := decode[handler.CreateCategoryResponse](t, rec).CategoryID
	rec = s.do(t, http.MethodPost, "/products", manager, `{"name": "Cola", "price": "1.50", "category_id": `+itoa(categoryID)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	productID := decode[handler.CreateProductResponse](t, rec).ProductID

	auditBefore, err := s.repos.AuditLogs.List(ctx, "", 500)
	require.NoError(t, err)

	// signed with the right key, but expired an hour ago
	expired, err := auth.NewJWTService(testSecret, time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		GenerateToken("m@x.com", model.RoleStoreManager)
	require.NoError(t, err)

	routes := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/categories", `{"name": "Hijack"}`},
		{http.MethodPut, "/categories/" + itoa(categoryID), `{"name": "Hijack"}`},
		{http.MethodDelete, "/categories/" + itoa(categoryID), ``},
		{http.MethodPost, "/products", `{"name": "Hijack", "price": 1, "category_id": ` + itoa(categoryID) + `}`},
		{http.MethodPut, "/products/" + itoa(productID), `{"name": "Hijack", "price": 0}`},
		{http.MethodDelete, "/products/" + itoa(productID), ``},
		{http.MethodPost, "/products/" + itoa(productID) + "/image", `{}`},
	}

	callers := []struct {
		name       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"customer token", customer, http.StatusForbidden, "FORBIDDEN"},
		{"expired token", expired, http.StatusUnauthorized, "UNAUTHENTICATED"},
	}

	for _, caller := range callers {
		for _, route := range routes {
			t.Run(caller.name+" "+route.method+" "+route.path, func(t *testing.T) {
				rec := s.do(t, route.method, route.path, caller.token, route.body)
				assert.Equal(t, caller.wantStatus, rec.Code, rec.Body.String())
				assert.Equal(t, caller.wantCode, decode[errors.ErrorResponse](t, rec).Code)
			})
		}
	}

	category, err := s.repos.Categories.FindByID(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, "Drinks", category.Name)
	categories, err := s.repos.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)

	product, err := s.repos.Products.FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "Cola", product.Name)
	assert.Equal(t, "1.50", product.Price.StringFixed(2))
	assert.Nil(t, product.ImageURL)
	products, err := s.repos.Products.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	auditAfter, err := s.repos.AuditLogs.List(ctx, "", 500)
	require.NoError(t, err)
	assert.Len(t, auditAfter, len(auditBefore))
}

func TestGateUsesStoredRole(t *testing.T) {
	s := newTestServer(t, nil)

	// token claims admin, but the stored user is a customer
	s.signup(t, "c@x.com", model.RoleCustomer)
	token, err := s.jwt.GenerateToken("c@x.com", model.RoleAdmin)
	require.NoError(t, err)
	rec := s.do(t, http.MethodPost, "/categories", token, map[string]string{"name": "Drinks"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// valid token for an email with no stored user
	ghost, err := s.jwt.GenerateToken("ghost@x.com", model.RoleAdmin)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/categories", ghost, map[string]string{"name": "Drinks"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCategoryLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signup(t, "admin@x.com", model.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/categories", admin, map[string]string{"name": "Drinks", "description": "cold"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[handler.CreateCategoryResponse](t, rec).CategoryID

	rec = s.do(t, http.MethodPost, "/categories", admin, map[string]string{"name": "Drinks"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CATEGORY_ALREADY_EXISTS", decode[errors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/categories", admin, map[string]string{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/categories/"+itoa(id), admin, `{"description": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Category updated successfully", decode[handler.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodGet, "/categories/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.Category](t, rec)
	assert.Equal(t, "Drinks", got.Name)
	assert.Nil(t, got.Description)

	rec = s.do(t, http.MethodGet, "/categories/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/categories/999", admin, map[string]string{"name": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/categories/"+itoa(id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Category deleted successfully", decode[handler.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodGet, "/categories/"+itoa(id), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CATEGORY_NOT_FOUND", decode[errors.ErrorResponse](t, rec).Code)
}

func TestProductLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	manager := s.signup(t, "m@x.com", model.RoleStoreManager)

	rec := s.do(t, http.MethodPost, "/categories", manager, map[string]string{"name": "Drinks"})
	require.Equal(t, http.StatusCreated, rec.Code)
	categoryID := decode[handler.CreateCategoryResponse](t, rec).CategoryID

	rec = s.do(t, http.MethodPost, "/products", manager, `{"name": "Cola", "price": 1.5, "category_id": 999}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CATEGORY", decode[errors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/products", manager, `{"name": "Cola", "category_id": `+itoa(categoryID)+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/products", manager, `{"name": "Cola", "price": -1, "category_id": `+itoa(categoryID)+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PRICE", decode[errors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/products", manager, `{"name": "Cola", "price": "1.50", "category_id": `+itoa(categoryID)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[handler.CreateProductResponse](t, rec)
	assert.Equal(t, "Product created successfully", created.Message)

	rec = s.do(t, http.MethodGet, "/products/"+itoa(created.ProductID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product := decode[model.Product](t, rec)
	assert.True(t, product.IsAvailable)
	assert.Equal(t, "1.50", product.Price.StringFixed(2))
	require.NotNil(t, product.CategoryID)
	assert.Equal(t, categoryID, *product.CategoryID)

	rec = s.do(t, http.MethodPut, "/products/"+itoa(created.ProductID), manager, `{"is_available": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product updated successfully", decode[handler.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodGet, "/products?category_id="+itoa(categoryID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]model.Product](t, rec)
	require.Len(t, products, 1)
	assert.False(t, products[0].IsAvailable)
	assert.Equal(t, "Cola", products[0].Name)

	rec = s.do(t, http.MethodDelete, "/categories/"+itoa(categoryID), manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CATEGORY_IN_USE", decode[errors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodDelete, "/products/"+itoa(created.ProductID), manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", decode[handler.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodDelete, "/products/"+itoa(created.ProductID), manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode[errors.ErrorResponse](t, rec).Code)
}

func TestProductImageUpload(t *testing.T) {
	s := newTestServer(t, nil)
	manager := s.signup(t, "m@x.com", model.RoleStoreManager)

	rec := s.do(t, http.MethodPost, "/categories", manager, map[string]string{"name": "Drinks"})
	categoryID := decode[handler.CreateCategoryResponse](t, rec).CategoryID
	rec = s.do(t, http.MethodPost, "/products", manager, `{"name": "Cola", "price": 2, "category_id": `+itoa(categoryID)+`}`)
	productID := decode[handler.CreateProductResponse](t, rec).ProductID

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "cola.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/"+itoa(productID)+"/image", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+manager)
	res := httptest.NewRecorder()
	s.e.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	image := decode[handler.ImageResponse](t, res)
	assert.True(t, strings.HasPrefix(image.ImageURL, "/uploads/products/"))

	served := httptest.NewRecorder()
	s.e.ServeHTTP(served, httptest.NewRequest(http.MethodGet, image.ImageURL, nil))
	assert.Equal(t, http.StatusOK, served.Code)
}

func TestAuditLogsAdminOnly(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signup(t, "admin@x.com", model.RoleAdmin)
	manager := s.signup(t, "m@x.com", model.RoleStoreManager)

	rec := s.do(t, http.MethodPost, "/categories", manager, map[string]string{"name": "Drinks"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/audit-logs", manager, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/audit-logs?entity_type=category", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]model.AuditLog](t, rec)
	require.Len(t, logs, 1)
	assert.Equal(t, "m@x.com", logs[0].ActorEmail)
	assert.Equal(t, model.AuditActionCreate, logs[0].Action)

	rec = s.do(t, http.MethodGet, "/audit-logs?limit=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserDirectoryAdminOnly(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signup(t, "admin@x.com", model.RoleAdmin)
	customer := s.signup(t, "c@x.com", model.RoleCustomer)

	rec := s.do(t, http.MethodGet, "/users", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	users := decode[[]model.User](t, rec)
	require.Len(t, users, 2)
	assert.Equal(t, "c@x.com", users[1].Email)

	rec = s.do(t, http.MethodGet, "/users/"+itoa(users[1].ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleCustomer, decode[model.User](t, rec).Role)

	rec = s.do(t, http.MethodGet, "/users/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", decode[errors.ErrorResponse](t, rec).Code)
}

func TestCatalogImport(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signup(t, "admin@x.com", model.RoleAdmin)
	manager := s.signup(t, "m@x.com", model.RoleStoreManager)

	doc := `[{"name": "Drinks", "products": [{"name": "Cola", "price": "1.50"}, {"name": "Water", "price": 1}]}]`

	rec := s.do(t, http.MethodPost, "/admin/catalog/import", manager, doc)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/catalog/import", admin, doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[handler.ImportCatalogResponse](t, rec)
	assert.Equal(t, service.SeedReport{CategoriesCreated: 1, ProductsCreated: 2}, res.Report)

	rec = s.do(t, http.MethodPost, "/admin/catalog/import", admin, doc)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.SeedReport{}, decode[handler.ImportCatalogResponse](t, rec).Report)

	rec = s.do(t, http.MethodGet, "/products", "", nil)
	assert.Len(t, decode[[]model.Product](t, rec), 2)

	rec = s.do(t, http.MethodPost, "/admin/catalog/import", admin, `[{"name": "Extras", "products": [{"name": "NoPrice"}]}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errors.ErrorResponse](t, rec).Code)
	rec = s.do(t, http.MethodGet, "/products", "", nil)
	assert.Len(t, decode[[]model.Product](t, rec), 2)
	rec = s.do(t, http.MethodGet, "/categories", "", nil)
	assert.Len(t, decode[[]model.Category](t, rec), 1)

	rec = s.do(t, http.MethodPost, "/admin/catalog/import", admin, `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/catalog/import", admin, `[{"name": "Bad", "products": [{"name": "X", "price": -1}]}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PRICE", decode[errors.ErrorResponse](t, rec).Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.signup(t, "Shopper@X.com", model.RoleCustomer)

	rec := s.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[handler.MeResponse](t, rec)
	assert.Equal(t, "shopper@x.com", me.User.Email)
	assert.Equal(t, model.RoleCustomer, me.Claims.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitedAuth(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.AuthRateLimit = 0.001
		cfg.AuthRateBurst = 2
	})

	creds := map[string]string{"email": "a@x.com", "password": "p"}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/login", "", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/login", "", creds).Code)

	rec := s.do(t, http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decode[errors.ErrorResponse](t, rec).Code)
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
