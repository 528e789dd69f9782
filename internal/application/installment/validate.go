package installment

import (
	stderrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"serial-novel-engine/internal/application/installment/generation"
	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/pkg/errors"
)

var validate = validator.New()

// Validate 执行生成前的全部配置类检查，不发起任何模型调用
func (s *Service) Validate(req *model.Request) error {
	_, err := s.precheck(req)
	return err
}

func (s *Service) precheck(req *model.Request) (model.Strategy, error) {
	if err := s.validateRequest(req); err != nil {
		return "", err
	}
	strategy, err := generation.SelectStrategy(req.Strategy)
	if err != nil {
		return "", err
	}
	if s.llm == nil || !s.llm.Available() {
		return "", errors.New(errors.CodeNoProviderConfigured, "no LLM provider configured")
	}
	return strategy, nil
}

// validateRequest 在任何外部调用之前校验请求
func (s *Service) validateRequest(req *model.Request) error {
	if req == nil {
		return errors.New(errors.CodeInvalidParam, "request is required")
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Outline)); n < s.cfg.Pipeline.MinOutlineChars {
		return errors.New(errors.CodeOutlineTooShort, "outline too short").
			WithDetail(fmt.Sprintf("outline has %d characters, minimum is %d", n, s.cfg.Pipeline.MinOutlineChars))
	}
	if err := validate.Struct(req); err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "invalid generation request").WithDetail(describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
