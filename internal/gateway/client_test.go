package gateway_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdesk/mealdesk-console/internal/gateway"
	"github.com/mealdesk/mealdesk-console/internal/session"
	_ "github.com/mealdesk/mealdesk-console/testing"
)

func TestSignInAdminNormalizesAdminEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/admin/signin", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin@mealdesk.test", body["email"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"admin":{"id":42,"displayName":"Ada","role":"ADMIN"},"token":"tok-1"}`)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	p, credential, err := client.SignInAdmin(context.Background(), "admin@mealdesk.test", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "Ada", p.DisplayName)
	assert.Equal(t, "tok-1", credential)
}

func TestSignInSuperadminNormalizesUserEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/superadmin/signin", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"user":{"id":7,"role":"SUPERADMIN"},"token":"tok-2"}`)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	p, credential, err := client.SignInSuperadmin(context.Background(), "root@mealdesk.test", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.True(t, p.IsSuperadmin())
	assert.Equal(t, "tok-2", credential)
}

func TestSignInUserNormalizesUserEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/signin", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"user":{"id":11,"displayName":"Noor","role":"ADMIN"},"token":"tok-4"}`)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	p, credential, err := client.SignInUser(context.Background(), "noor@mealdesk.test", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)
	assert.Equal(t, "Noor", p.DisplayName)
	assert.Equal(t, "tok-4", credential)
}

func TestSignInPassesRemoteMessageThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"invalid email or password"}`)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	_, _, err := client.SignInAdmin(context.Background(), "admin@mealdesk.test", "wrong")
	require.Error(t, err)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid email or password", apiErr.Error())
}

func TestSignInRejectsEmptyEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token":"tok-3"}`)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	_, _, err := client.SignInAdmin(context.Background(), "admin@mealdesk.test", "hunter22")
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestSessionCheckSendsBearerCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer opaque-credential", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"user":{"id":9,"role":"ADMIN"}}`)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	p, err := client.SessionCheck(context.Background(), "opaque-credential")
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
}

func TestSessionCheckEmptyCredentialSkipsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	_, err := client.SessionCheck(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSessionCheckExpiredJWTSkipsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	_, err := client.SessionCheck(context.Background(), expiredJWT(t))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSessionCheckRejectionMapsToNoSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	_, err := client.SessionCheck(context.Background(), "opaque-credential")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSignUpReturnsRemoteMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/signup", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message":"check your inbox to verify the account"}`)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second)
	msg, err := client.SignUp(context.Background(), session.SignUpForm{
		Name:           "Ada",
		Email:          "ada@mealdesk.test",
		Phone:          "+6281000000",
		Password:       "hunter22",
		RetypePassword: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "check your inbox to verify the account", msg)
}

// expiredJWT builds an unsigned token whose exp is in the past. The
// client only does an unverified parse, so the signature is irrelevant.
func expiredJWT(t *testing.T) string {
	t.Helper()
	enc := func(v any) string {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(data)
	}
	header := enc(map[string]string{"alg": "none", "typ": "JWT"})
	claims := enc(map[string]int64{"exp": time.Now().Add(-time.Hour).Unix()})
	return header + "." + claims + "."
}
