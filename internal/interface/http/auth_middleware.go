package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cruise-planner/internal/domain/device"
	apperrors "github.com/yanqian/cruise-planner/pkg/errors"
)

const (
	ownerKey       = "device_id"
	deviceIDHeader = "X-Device-Id"
)

func setOwner(c *gin.Context, ownerID string) {
	c.Set(ownerKey, ownerID)
}

func ownerFrom(c *gin.Context) (string, bool) {
	value, ok := c.Get(ownerKey)
	if !ok {
		return "", false
	}
	ownerID, ok := value.(string)
	return ownerID, ok && ownerID != ""
}

// identityMiddleware resolves the calling device from a bearer token or the
// X-Device-Id header. A bad token is rejected; no identity at all is allowed
// through so public routes keep working.
func identityMiddleware(devices device.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil))
				return
			}
			ownerID, err := devices.Validate(c.Request.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				status := http.StatusUnauthorized
				code := "invalid_token"
				if !apperrors.IsCode(err, "invalid_token") {
					status = http.StatusInternalServerError
					code = "device_error"
				}
				abortWithError(c, NewHTTPError(status, code, apperrors.MessageOf(err), err))
				return
			}
			setOwner(c, ownerID)
			c.Next()
			return
		}

		if raw := c.GetHeader(deviceIDHeader); raw != "" {
			ownerID, err := device.NormalizeID(raw)
			if err != nil {
				abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
				return
			}
			setOwner(c, ownerID)
		}
		c.Next()
	}
}

// requireOwner rejects requests without a resolved device identity.
func requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ownerFrom(c); !ok {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "device identity is required", nil))
			return
		}
		c.Next()
	}
}
