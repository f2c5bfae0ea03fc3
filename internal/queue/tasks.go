package queue

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/prepvio/prepvio-api/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPromoCodeGenerateBatch 批量生成优惠码任务
	TaskPromoCodeGenerateBatch = constants.TaskPromoCodeGenerateBatch
)

// ErrInvalidPayload 任务载荷无效
var ErrInvalidPayload = errors.New("queue: invalid task payload")

// PromoCodeGenerateBatchPayload 批量生成任务载荷，码模板从批次记录读取
type PromoCodeGenerateBatchPayload struct {
	BatchNo string `json:"batch_no"`
}

// NewPromoCodeGenerateBatchTask 创建批量生成任务
func NewPromoCodeGenerateBatchTask(payload PromoCodeGenerateBatchPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.BatchNo) == "" {
		return nil, ErrInvalidPayload
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPromoCodeGenerateBatch, body), nil
}

// ParsePromoCodeGenerateBatchPayload 解析批量生成任务载荷
func ParsePromoCodeGenerateBatchPayload(task *asynq.Task) (PromoCodeGenerateBatchPayload, error) {
	var payload PromoCodeGenerateBatchPayload
	if task == nil {
		return payload, ErrInvalidPayload
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	if strings.TrimSpace(payload.BatchNo) == "" {
		return payload, ErrInvalidPayload
	}
	return payload, nil
}
