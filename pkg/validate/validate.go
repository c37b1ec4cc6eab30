// Package validate 请求参数校验，错误信息使用英文翻译并以 json 字段名为 key
package validate

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"TaskQuest/pkg/errors"
)

const notBlankTag = "notblank"

var (
	v          *validator.Validate
	translator ut.Translator
)

func init() {
	v = validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return !ok || strings.TrimSpace(s) != ""
	})
	_ = v.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		},
	)
}

// FieldErrors 字段名 → 错误信息
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, f[k])
	}
	return strings.Join(parts, "; ")
}

// Unwrap 使 errors.Is(err, errors.InvalidRequest) 成立
func (f FieldErrors) Unwrap() error {
	return errors.InvalidRequest
}

// Struct 校验失败时返回 FieldErrors
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

// Details 提取字段错误用于响应
func Details(err error) map[string]interface{} {
	var fe FieldErrors
	if !stderrors.As(err, &fe) {
		return nil
	}
	out := make(map[string]interface{}, len(fe))
	for k, msg := range fe {
		out[k] = msg
	}
	return out
}
