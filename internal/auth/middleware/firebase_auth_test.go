package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/auth"
)

type stubVerifier map[string]*fbauth.Token

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if tok, ok := s[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("token rejected")
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := stubVerifier{
		"good": {UID: "uid-1", Claims: map[string]interface{}{ClaimWalletAddress: "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"}},
		"bare": {UID: "uid-2", Claims: map[string]interface{}{}},
	}

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	r := gin.New()
	r.Use(FirebaseAuthMiddleware(verifier, log))
	r.GET("/whoami", func(c *gin.Context) {
		id, _ := auth.IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"identity": id})
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
		wantUID  string
	}{
		{"valid token", "Bearer good", http.StatusOK, `{"identity":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"}`, "uid-1"},
		{"no token", "", http.StatusOK, `{"identity":""}`, ""},
		{"rejected token", "Bearer nope", http.StatusUnauthorized, "", ""},
		{"missing claim", "Bearer bare", http.StatusUnauthorized, "", "uid-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			if tt.wantUID != "" {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, tt.wantUID, hook.LastEntry().Data["uid"])
			}
		})
	}
}
