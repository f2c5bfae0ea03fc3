package i18n

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":            "请求参数错误",
		"error.unauthorized":           "未登录或登录已失效",
		"error.forbidden":              "无权限访问",
		"error.not_found":              "资源不存在",
		"error.internal":               "服务器内部错误",
		"error.too_many_requests":      "请求过于频繁，请 %d 秒后重试",
		"error.user_required":          "请先登录",
		"error.user_disabled":          "账号已被禁用",
		"error.admin_invalid":          "管理员身份无效",
		"error.id_invalid":             "ID 无效",
		"error.pagination_invalid":     "分页参数无效",
		"error.time_format_invalid":    "时间格式无效，请使用 RFC3339",
		"error.token_invalid":          "登录凭证无效",
		"error.rate_limit_unavailable": "限流服务暂不可用",
		"error.token_revoked":          "登录凭证已失效，请重新登录",
		"error.auth_header_missing":    "缺少认证信息",
		"error.auth_header_invalid":    "认证信息格式错误",
		"error.jwt_secret_missing":     "服务端未配置签名密钥",
		"error.user_id_invalid":        "用户 ID 无效",
		"error.user_id_type_invalid":   "用户 ID 类型错误",
		"error.admin_id_invalid":       "管理员 ID 无效",
		"error.admin_id_type_invalid":  "管理员 ID 类型错误",

		"promo.inactive":               "优惠码已停用",
		"promo.not_yet_valid":          "优惠码尚未生效",
		"promo.expired":                "优惠码已过期",
		"promo.usage_limit_reached":    "优惠码已被领完",
		"promo.already_used":           "您已使用过该优惠码",
		"promo.not_applicable_plan":    "优惠码不适用于该套餐",
		"promo.below_minimum_purchase": "未达到优惠码使用门槛",
		"promo.commit_conflict":        "优惠码使用人数较多，请稍后重试",
		"promo.not_found":              "优惠码不存在",
		"promo.data_integrity_fault":   "优惠码配置异常，请联系客服",
		"promo.invalid":                "优惠码参数无效",
		"promo.code_exists":            "优惠码已存在",
		"promo.usage_limit_below":      "使用上限不能小于已使用次数",
		"promo.plan_invalid":           "套餐无效",
		"promo.amount_invalid":         "订单金额无效",
		"promo.batch_too_large":        "单次生成数量超出上限",
		"promo.batch_not_found":        "生成批次不存在",
		"promo.generate_queued":        "生成任务已提交",
		"promo.purged":                 "优惠码已删除",
		"promo.stale":                  "优惠码已被其他人修改，请刷新后重试",
		"promo.user_required":          "请先登录后再使用优惠码",
		"promo.fetch_failed":           "获取优惠码失败",
		"promo.create_failed":          "创建优惠码失败",
		"promo.update_failed":          "更新优惠码失败",
		"promo.purge_failed":           "删除优惠码失败",
		"promo.evaluate_failed":        "校验优惠码失败",
		"promo.redeem_failed":          "使用优惠码失败",
		"promo.generate_failed":        "生成优惠码失败",
	},
	LocaleTW: {
		"error.bad_request":            "請求參數錯誤",
		"error.unauthorized":           "未登入或登入已失效",
		"error.forbidden":              "無權限存取",
		"error.not_found":              "資源不存在",
		"error.internal":               "伺服器內部錯誤",
		"error.too_many_requests":      "請求過於頻繁，請 %d 秒後重試",
		"error.user_required":          "請先登入",
		"error.user_disabled":          "帳號已被停用",
		"error.admin_invalid":          "管理員身分無效",
		"error.id_invalid":             "ID 無效",
		"error.pagination_invalid":     "分頁參數無效",
		"error.time_format_invalid":    "時間格式無效，請使用 RFC3339",
		"error.token_invalid":          "登入憑證無效",
		"error.rate_limit_unavailable": "限流服務暫不可用",
		"error.token_revoked":          "登入憑證已失效，請重新登入",
		"error.auth_header_missing":    "缺少認證資訊",
		"error.auth_header_invalid":    "認證資訊格式錯誤",
		"error.jwt_secret_missing":     "伺服器未設定簽名金鑰",
		"error.user_id_invalid":        "使用者 ID 無效",
		"error.user_id_type_invalid":   "使用者 ID 類型錯誤",
		"error.admin_id_invalid":       "管理員 ID 無效",
		"error.admin_id_type_invalid":  "管理員 ID 類型錯誤",

		"promo.inactive":               "優惠碼已停用",
		"promo.not_yet_valid":          "優惠碼尚未生效",
		"promo.expired":                "優惠碼已過期",
		"promo.usage_limit_reached":    "優惠碼已被領完",
		"promo.already_used":           "您已使用過該優惠碼",
		"promo.not_applicable_plan":    "優惠碼不適用於該方案",
		"promo.below_minimum_purchase": "未達到優惠碼使用門檻",
		"promo.commit_conflict":        "優惠碼使用人數較多，請稍後重試",
		"promo.not_found":              "優惠碼不存在",
		"promo.data_integrity_fault":   "優惠碼設定異常，請聯繫客服",
		"promo.invalid":                "優惠碼參數無效",
		"promo.code_exists":            "優惠碼已存在",
		"promo.usage_limit_below":      "使用上限不能小於已使用次數",
		"promo.plan_invalid":           "方案無效",
		"promo.amount_invalid":         "訂單金額無效",
		"promo.batch_too_large":        "單次產生數量超出上限",
		"promo.batch_not_found":        "產生批次不存在",
		"promo.generate_queued":        "產生任務已提交",
		"promo.purged":                 "優惠碼已刪除",
		"promo.stale":                  "優惠碼已被他人修改，請重新整理後再試",
		"promo.user_required":          "請先登入後再使用優惠碼",
		"promo.fetch_failed":           "取得優惠碼失敗",
		"promo.create_failed":          "建立優惠碼失敗",
		"promo.update_failed":          "更新優惠碼失敗",
		"promo.purge_failed":           "刪除優惠碼失敗",
		"promo.evaluate_failed":        "驗證優惠碼失敗",
		"promo.redeem_failed":          "使用優惠碼失敗",
		"promo.generate_failed":        "產生優惠碼失敗",
	},
	LocaleEN: {
		"error.bad_request":            "Invalid request parameters",
		"error.unauthorized":           "Not signed in or session expired",
		"error.forbidden":              "Access denied",
		"error.not_found":              "Resource not found",
		"error.internal":               "Internal server error",
		"error.too_many_requests":      "Too many requests, retry in %d seconds",
		"error.user_required":          "Please sign in first",
		"error.user_disabled":          "Account disabled",
		"error.admin_invalid":          "Invalid admin identity",
		"error.id_invalid":             "Invalid ID",
		"error.pagination_invalid":     "Invalid pagination parameters",
		"error.time_format_invalid":    "Invalid time format, use RFC3339",
		"error.token_invalid":          "Invalid token",
		"error.rate_limit_unavailable": "Rate limiter unavailable",
		"error.token_revoked":          "Session revoked, please sign in again",
		"error.auth_header_missing":    "Missing authorization",
		"error.auth_header_invalid":    "Malformed authorization header",
		"error.jwt_secret_missing":     "Signing key is not configured",
		"error.user_id_invalid":        "Invalid user ID",
		"error.user_id_type_invalid":   "Invalid user ID type",
		"error.admin_id_invalid":       "Invalid admin ID",
		"error.admin_id_type_invalid":  "Invalid admin ID type",

		"promo.inactive":               "This promo code is inactive",
		"promo.not_yet_valid":          "This promo code is not valid yet",
		"promo.expired":                "This promo code has expired",
		"promo.usage_limit_reached":    "This promo code has reached its usage limit",
		"promo.already_used":           "You have already used this promo code",
		"promo.not_applicable_plan":    "This promo code does not apply to the selected plan",
		"promo.below_minimum_purchase": "Order amount is below the minimum for this promo code",
		"promo.commit_conflict":        "This promo code is busy, please retry",
		"promo.not_found":              "Promo code not found",
		"promo.data_integrity_fault":   "This promo code is misconfigured, please contact support",
		"promo.invalid":                "Invalid promo code parameters",
		"promo.code_exists":            "Promo code already exists",
		"promo.usage_limit_below":      "Usage limit cannot be lower than the current usage count",
		"promo.plan_invalid":           "Invalid plan",
		"promo.amount_invalid":         "Invalid order amount",
		"promo.batch_too_large":        "Requested quantity exceeds the batch limit",
		"promo.batch_not_found":        "Generation batch not found",
		"promo.generate_queued":        "Generation task queued",
		"promo.purged":                 "Promo code deleted",
		"promo.stale":                  "This promo code was modified by someone else, refresh and retry",
		"promo.user_required":          "Sign in to use promo codes",
		"promo.fetch_failed":           "Failed to load promo codes",
		"promo.create_failed":          "Failed to create promo code",
		"promo.update_failed":          "Failed to update promo code",
		"promo.purge_failed":           "Failed to delete promo code",
		"promo.evaluate_failed":        "Failed to check promo code",
		"promo.redeem_failed":          "Failed to apply promo code",
		"promo.generate_failed":        "Failed to generate promo codes",
	},
}
