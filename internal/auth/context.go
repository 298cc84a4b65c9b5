package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

const CtxIdentity = "wallet_identity"

// SetIdentity records the authenticated caller on the gin context.
func SetIdentity(c *gin.Context, id domain.Identity) {
	c.Set(CtxIdentity, id)
}

// IdentityFrom returns the caller set by one of the identity middlewares.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return "", false
	}
	id, ok := v.(domain.Identity)
	return id, ok && !id.IsZero()
}
