package admin

import (
	"github.com/prepvio/prepvio-api/internal/constants"
	handlershared "github.com/prepvio/prepvio-api/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, constants.ContextKeyAdminID, "error.admin_id_invalid", "error.admin_id_type_invalid")
}

// getAdminName 返回当前管理员用户名，用于记录创建人
func getAdminName(c *gin.Context) string {
	if value, ok := c.Get(constants.ContextKeyAdminName); ok {
		if name, ok := value.(string); ok {
			return name
		}
	}
	return ""
}
