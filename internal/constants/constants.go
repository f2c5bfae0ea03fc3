package constants

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 队列与任务
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskPromoCodeGenerateBatch = "promo_code:generate_batch"
)

// 上下文键
const (
	ContextKeyRequestID    = "request_id"
	ContextKeyAdminID      = "admin_id"
	ContextKeyAdminName    = "username"
	ContextKeyAdminIsSuper = "admin_is_super"
	ContextKeyUserID       = "user_id"
	ContextKeyUserEmail    = "user_email"
)

// 优惠码创建来源
const (
	PromoCodeCreatedBySeed = "seed"
)
