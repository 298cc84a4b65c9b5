package middleware

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/auth"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/logging"
)

// ClaimWalletAddress is the custom claim linking a Firebase user to an account address.
const ClaimWalletAddress = "wallet_address"

// TokenVerifier is satisfied by *fbauth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens and takes the caller
// identity from the wallet_address claim. Requests without a token continue
// anonymously so public reads stay open. The Firebase UID is only logged.
func FirebaseAuthMiddleware(verifier TokenVerifier, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		decodedToken, err := verifier.VerifyIDToken(ctx, token)
		if err != nil {
			logging.FromContext(ctx, log).WithError(err).Warn("firebase token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}

		raw, _ := decodedToken.Claims[ClaimWalletAddress].(string)
		id, err := domain.ParseIdentity(raw)
		if err != nil {
			logging.FromContext(ctx, log).WithField("uid", decodedToken.UID).Warn("token has no valid wallet_address claim")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "token has no valid wallet_address claim"})
			return
		}

		logging.FromContext(ctx, log).WithFields(logrus.Fields{
			"uid":      decodedToken.UID,
			"identity": id,
		}).Debug("firebase token verified")
		auth.SetIdentity(c, id)
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
