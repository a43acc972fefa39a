package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-api/internal/application/dto"
	apphttp "github.com/jhoicas/insumos-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/insumos-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testShopID    = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "identidad-test"
	testExpMin    = 60
)

// whoAmI responde con la identidad que dejó AuthMiddleware en Locals.
func whoAmI(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user_id": apphttp.GetUserID(c),
		"shop_id": apphttp.GetShopID(c),
		"role":    apphttp.GetRole(c),
	})
}

// authApp monta /me con AuthMiddleware y, si se indican roles, RequireRole.
func authApp(issuer string, roles ...string) *fiber.App {
	app := fiber.New()
	handlers := []fiber.Handler{apphttp.AuthMiddleware(testJWTSecret, issuer)}
	if len(roles) > 0 {
		handlers = append(handlers, apphttp.RequireRole(roles...))
	}
	app.Get("/me", append(handlers, whoAmI)...)
	return app
}

func identity(role string) pkgjwt.Identity {
	return pkgjwt.Identity{UserID: testUserID, ShopID: testShopID, Role: role}
}

func signed(t *testing.T, id pkgjwt.Identity, issuer string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, id, issuer, testExpMin)
	require.NoError(t, err)
	return tok
}

// callMe hace GET /me y devuelve status y cuerpo decodificado.
func callMe(t *testing.T, app *fiber.App, authHeader string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]string{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_CargaIdentidadYTienda(t *testing.T) {
	app := authApp(testIssuer)

	status, body := callMe(t, app, "Bearer "+signed(t, identity(apphttp.RoleStaff), testIssuer))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testShopID, body["shop_id"])
	assert.Equal(t, apphttp.RoleStaff, body["role"])

	// cada token queda acotado a su propia tienda
	other := pkgjwt.Identity{UserID: "user-2", ShopID: "shop-cafeteria", Role: apphttp.RoleAdmin}
	status, body = callMe(t, app, "bearer "+signed(t, other, testIssuer))
	require.Equal(t, http.StatusOK, status, "el esquema Bearer no distingue mayúsculas")
	assert.Equal(t, "shop-cafeteria", body["shop_id"])
	assert.Equal(t, "user-2", body["user_id"])
}

func TestAuthMiddleware_Rechazos(t *testing.T) {
	app := authApp(testIssuer)

	expired, err := pkgjwt.Generate(testJWTSecret, identity(apphttp.RoleAdmin), testIssuer, -1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"sin header", "", "MISSING_TOKEN"},
		{"esquema Basic", "Basic dXNlcjpwYXNz", "INVALID_TOKEN"},
		{"token malformado", "Bearer token.invalido.aqui", "INVALID_TOKEN"},
		{"token expirado", "Bearer " + expired, "INVALID_TOKEN"},
		{"otro emisor", "Bearer " + signed(t, identity(apphttp.RoleAdmin), "otro-emisor"), "INVALID_TOKEN"},
		{"sin tienda", "Bearer " + signed(t, pkgjwt.Identity{UserID: testUserID, Role: apphttp.RoleAdmin}, testIssuer), "INVALID_TOKEN"},
		{"sin usuario", "Bearer " + signed(t, pkgjwt.Identity{ShopID: testShopID, Role: apphttp.RoleAdmin}, testIssuer), "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := callMe(t, app, tt.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestAuthMiddleware_SinEmisorConfiguradoAceptaCualquiera(t *testing.T) {
	app := authApp("")
	status, body := callMe(t, app, "Bearer "+signed(t, identity(apphttp.RoleSeller), "cualquier-emisor"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, testShopID, body["shop_id"])
}

// ──────────────────────────────────────────────────────────────────────────────
// RequireRole: la misma matriz que aplica el router
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_Matriz(t *testing.T) {
	deleteRoles := []string{apphttp.RoleAdmin, apphttp.RoleSeller}
	rebuildRoles := []string{apphttp.RoleAdmin}

	tests := []struct {
		name    string
		allowed []string
		role    string
		want    int
	}{
		{"admin borra", deleteRoles, apphttp.RoleAdmin, http.StatusOK},
		{"seller borra", deleteRoles, apphttp.RoleSeller, http.StatusOK},
		{"staff no borra", deleteRoles, apphttp.RoleStaff, http.StatusForbidden},
		{"admin reconstruye", rebuildRoles, apphttp.RoleAdmin, http.StatusOK},
		{"seller no reconstruye", rebuildRoles, apphttp.RoleSeller, http.StatusForbidden},
		{"rol desconocido", rebuildRoles, "auditor", http.StatusForbidden},
		{"sin rol", deleteRoles, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := authApp(testIssuer, tt.allowed...)
			status, body := callMe(t, app, "Bearer "+signed(t, identity(tt.role), testIssuer))
			assert.Equal(t, tt.want, status)
			switch tt.want {
			case http.StatusForbidden:
				assert.Equal(t, "FORBIDDEN", body["code"])
			case http.StatusUnauthorized:
				assert.Equal(t, "MISSING_ROLE", body["code"])
			default:
				assert.Equal(t, tt.role, body["role"])
			}
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// pkg/jwt
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateYParse(t *testing.T) {
	tok := signed(t, identity(apphttp.RoleStaff), testIssuer)

	id, err := pkgjwt.Parse(testJWTSecret, testIssuer, tok)
	require.NoError(t, err)
	assert.Equal(t, identity(apphttp.RoleStaff), id)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", "", tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
	_, err = pkgjwt.Parse(testJWTSecret, "otro-emisor", tok)
	assert.Error(t, err, "emisor distinto debe invalidar el token")
	_, err = pkgjwt.Parse("", "", tok)
	assert.Error(t, err)
	_, err = pkgjwt.Generate("", identity(apphttp.RoleStaff), testIssuer, testExpMin)
	assert.Error(t, err)
}

func TestJWT_RechazaOtroAlgoritmoHMAC(t *testing.T) {
	claims := pkgjwt.Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: testUserID,
		ShopID: testShopID,
		Role:   apphttp.RoleAdmin,
	}
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testJWTSecret, testIssuer, tok)
	assert.Error(t, err, "solo se aceptan tokens HS256")
}

// Los rechazos de auth usan el mismo cuerpo que el resto de errores de la API.
func TestAuthMiddleware_CuerpoDeError(t *testing.T) {
	app := authApp(testIssuer)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var errResp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "MISSING_TOKEN", errResp.Code)
	assert.NotEmpty(t, errResp.Message)
}
