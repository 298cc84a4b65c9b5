package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

const HeaderWalletAddress = "X-Wallet-Address"

// WalletHeader takes the caller from the X-Wallet-Address header.
// Requests without the header continue anonymously; a malformed address is
// rejected.
func WalletHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderWalletAddress))
		if raw == "" {
			c.Next()
			return
		}

		id, err := domain.ParseIdentity(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
			return
		}

		SetIdentity(c, id)
		c.Next()
	}
}

// RequireIdentity rejects requests that no identity middleware authenticated.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "caller identity required"})
			return
		}
		c.Next()
	}
}
