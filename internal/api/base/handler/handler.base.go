// Package basehdl chứa các tiện ích dùng chung cho handler: parse / validate request và chuẩn hóa response.
package basehdl

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"message_mate/internal/common"
	"message_mate/internal/global"
)

// BaseHandler được embed vào các domain handler
type BaseHandler struct{}

// NewBaseHandler tạo BaseHandler
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// ParseRequestBody parse body JSON vào input rồi validate theo struct tag.
//
// Parameters:
// - c: Fiber context
// - input: Con trỏ tới struct sẽ chứa dữ liệu được parse
func (h *BaseHandler) ParseRequestBody(c fiber.Ctx, input interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(c.Body()))
	decoder.UseNumber()
	if err := decoder.Decode(input); err != nil {
		return common.NewError(common.ErrCodeValidationFormat, common.MsgValidationError, common.StatusBadRequest, err.Error())
	}
	return h.ValidateInput(input)
}

// ValidateInput validate struct theo tag `validate`
func (h *BaseHandler) ValidateInput(input interface{}) error {
	if err := global.Validate.Struct(input); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// input không phải struct (map, slice): không có gì để validate
			return nil
		}
		details := map[string]string{}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, details)
	}
	return nil
}

// RequireParam đọc path param bắt buộc
func (h *BaseHandler) RequireParam(c fiber.Ctx, name string) (string, error) {
	value := c.Params(name)
	if value == "" {
		return "", common.NewError(common.ErrCodeValidationInput, "Thiếu tham số "+name+" trong URL", common.StatusBadRequest, nil)
	}
	return value, nil
}
