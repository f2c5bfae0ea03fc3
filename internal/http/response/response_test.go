package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRejectedCarriesReasonAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	Rejected(c, CodeUnprocessable, "expired", "expired", false)

	if w.Code != 200 {
		t.Fatalf("expected http 200, got %d", w.Code)
	}
	var body struct {
		StatusCode int                    `json:"status_code"`
		Msg        string                 `json:"msg"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.StatusCode != CodeUnprocessable {
		t.Fatalf("unexpected status code: %d", body.StatusCode)
	}
	if body.Data["reason"] != "expired" || body.Data["retryable"] != false {
		t.Fatalf("unexpected data: %+v", body.Data)
	}
	if body.Data["request_id"] != "req-1" {
		t.Fatalf("expected request id attached, got %+v", body.Data)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	if p.TotalPage != 3 {
		t.Fatalf("expected 3 pages, got %d", p.TotalPage)
	}
	if NewPagination(1, 0, 10).TotalPage != 0 {
		t.Fatalf("zero page size should yield zero pages")
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	inner := &AppError{Code: CodeInternal, Message: "inner"}
	wrapped := WrapError(CodeConflict, "outer", inner)
	if wrapped.Unwrap() != inner {
		t.Fatalf("unwrap mismatch")
	}
	if wrapped.Error() != "outer: inner" {
		t.Fatalf("unexpected error string: %s", wrapped.Error())
	}
}
