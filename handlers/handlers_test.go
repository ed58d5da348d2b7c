package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stocks-trader/auth"
	"stocks-trader/database"
	"stocks-trader/ledger"
	"stocks-trader/logging"
	"stocks-trader/quote"
	"stocks-trader/session"
	"stocks-trader/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	prices quote.Static
	db     interface{ Close() error }
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	_, rdb := testutil.NewRedis(t)

	prices := quote.Static{
		"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.NewFromInt(100)},
		"BRK.A": {Symbol: "BRK.A", Name: "Berkshire Hathaway", Price: decimal.NewFromInt(600000)},
	}
	logger := logging.NewSilent()
	h := New(
		auth.NewService(store, auth.Bcrypt{Cost: bcrypt.MinCost}, decimal.NewFromInt(10000)),
		ledger.NewService(store, prices, logger),
		session.NewManager(rdb, "test-secret", time.Hour),
		logger,
		false,
	)
	router, err := NewRouter(h, logger)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	return &testApp{router: router, prices: prices, db: sqlDB}
}

func (a *testApp) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

// signIn registers and logs in a user, returning the session cookie.
func (a *testApp) signIn(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rr := a.do(http.MethodPost, "/register", url.Values{
		"username":     {username},
		"password":     {"hunter2"},
		"confirmation": {"hunter2"},
	}, nil)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/login", rr.Header().Get("Location"))

	rr = a.do(http.MethodPost, "/login", url.Values{
		"username": {username},
		"password": {"hunter2"},
	}, nil)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/", rr.Header().Get("Location"))
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	return cookie
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/", "/quote", "/buy", "/sell", "/history"} {
		rr := app.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusFound, rr.Code, path)
		assert.Equal(t, "/login", rr.Header().Get("Location"), path)
		assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"), path)
	}

	rr := app.do(http.MethodPost, "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"1"}}, nil)
	assert.Equal(t, http.StatusFound, rr.Code)
}

func TestPublicPagesRender(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(http.MethodGet, "/login", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `action="/login"`)
	assert.Equal(t, "0", rr.Header().Get("Expires"))

	rr = app.do(http.MethodGet, "/register", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="confirmation"`)
}

func TestTradingFlow(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signIn(t, "alice")

	rr := app.do(http.MethodGet, "/", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "$10,000.00")

	rr = app.do(http.MethodPost, "/quote", url.Values{"symbol": {"aapl"}}, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Apple Inc. (AAPL) costs $100.00")

	rr = app.do(http.MethodPost, "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"10"}}, cookie)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	rr = app.do(http.MethodGet, "/", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<td>AAPL</td>")
	assert.Contains(t, body, "$9,000.00")
	assert.Contains(t, body, "$1,000.00")
	assert.Contains(t, body, "$10,000.00")

	rr = app.do(http.MethodGet, "/sell", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<option value="AAPL">AAPL (10)</option>`)

	app.prices["AAPL"] = quote.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.NewFromInt(120)}
	rr = app.do(http.MethodPost, "/sell", url.Values{"symbol": {"AAPL"}, "shares": {"10"}}, cookie)
	require.Equal(t, http.StatusFound, rr.Code)

	rr = app.do(http.MethodGet, "/", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "$10,200.00")
	assert.NotContains(t, rr.Body.String(), "<td>AAPL</td>")

	rr = app.do(http.MethodGet, "/history", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "<td>10</td>")
	assert.Contains(t, body, "<td>-10</td>")
	assert.Contains(t, body, "$120.00")
}

func TestTradeErrors(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signIn(t, "bob")

	cases := []struct {
		name   string
		path   string
		form   url.Values
		expect string
	}{
		{"missing symbol", "/buy", url.Values{"shares": {"1"}}, "must provide symbol"},
		{"missing shares", "/buy", url.Values{"symbol": {"AAPL"}}, "must provide shares"},
		{"zero shares", "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"0"}}, "shares must be a positive integer"},
		{"negative shares", "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"-2"}}, "shares must be a positive integer"},
		{"fractional shares", "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"1.5"}}, "shares must be a positive integer"},
		{"text shares", "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"ten"}}, "shares must be a positive integer"},
		{"unknown symbol", "/buy", url.Values{"symbol": {"NOPE"}, "shares": {"1"}}, "invalid symbol"},
		{"too expensive", "/buy", url.Values{"symbol": {"BRK.A"}, "shares": {"1"}}, "afford"},
		{"sell unheld", "/sell", url.Values{"symbol": {"AAPL"}, "shares": {"1"}}, "you do not own enough shares"},
		{"quote unknown", "/quote", url.Values{"symbol": {"NOPE"}}, "invalid symbol"},
		{"quote blank", "/quote", url.Values{"symbol": {""}}, "must provide symbol"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := app.do(http.MethodPost, tc.path, tc.form, cookie)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.expect)
		})
	}

	rr := app.do(http.MethodGet, "/", nil, cookie)
	assert.Contains(t, rr.Body.String(), "$10,000.00")
}

func TestRegisterErrors(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "carol")

	cases := []struct {
		name   string
		form   url.Values
		expect string
	}{
		{"blank username", url.Values{"password": {"a"}, "confirmation": {"a"}}, "must provide username"},
		{"mismatch", url.Values{"username": {"dave"}, "password": {"a"}, "confirmation": {"b"}}, "passwords do not match"},
		{"duplicate", url.Values{"username": {"carol"}, "password": {"a"}, "confirmation": {"a"}}, "username already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := app.do(http.MethodPost, "/register", tc.form, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.expect)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "erin")

	for _, form := range []url.Values{
		{"username": {"erin"}, "password": {"wrong"}},
		{"username": {"nobody"}, "password": {"hunter2"}},
	} {
		rr := app.do(http.MethodPost, "/login", form, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid username and/or password")
		assert.Nil(t, sessionCookie(rr))
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signIn(t, "frank")

	rr := app.do(http.MethodGet, "/logout", nil, cookie)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	cleared := sessionCookie(rr)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	rr = app.do(http.MethodGet, "/", nil, cookie)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestLoginPageClearsSession(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signIn(t, "grace")

	rr := app.do(http.MethodGet, "/login", nil, cookie)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = app.do(http.MethodGet, "/", nil, cookie)
	assert.Equal(t, http.StatusFound, rr.Code)
}

func TestInternalErrorRendersGenericApology(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signIn(t, "heidi")

	require.NoError(t, app.db.Close())
	rr := app.do(http.MethodGet, "/", nil, cookie)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "something went wrong")
	assert.NotContains(t, rr.Body.String(), "database is closed")
}
