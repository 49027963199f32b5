package service

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/truckdock/internal/config"
)

// PolicyViolation 密码不满足策略时返回，Key/Args 用于 i18n 渲染
type PolicyViolation struct {
	Key  string
	Args []interface{}
}

func (v *PolicyViolation) Error() string {
	return "password policy: " + v.Key
}

// Unwrap 使 errors.Is(err, ErrWeakPassword) 成立
func (v *PolicyViolation) Unwrap() error {
	return ErrWeakPassword
}

// PasswordPolicyError 将密码策略错误还原为 i18n key 与参数
func PasswordPolicyError(err error) (string, []interface{}, bool) {
	var violation *PolicyViolation
	if !errors.As(err, &violation) {
		return "", nil, false
	}
	return violation.Key, violation.Args, true
}

type charClass struct {
	enabled func(config.PasswordPolicyConfig) bool
	match   func(rune) bool
	key     string
}

// 按校验顺序排列，命中第一个缺失的字符类即返回
var passwordCharClasses = []charClass{
	{func(p config.PasswordPolicyConfig) bool { return p.RequireUpper }, unicode.IsUpper, "error.password_require_upper"},
	{func(p config.PasswordPolicyConfig) bool { return p.RequireLower }, unicode.IsLower, "error.password_require_lower"},
	{func(p config.PasswordPolicyConfig) bool { return p.RequireNumber }, unicode.IsDigit, "error.password_require_number"},
	{func(p config.PasswordPolicyConfig) bool { return p.RequireSpecial }, isSpecialRune, "error.password_require_special"},
}

func isSpecialRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	minLength := max(policy.MinLength, 1)
	if strings.TrimSpace(password) == "" || utf8.RuneCountInString(password) < minLength {
		return &PolicyViolation{Key: "error.password_min_length", Args: []interface{}{minLength}}
	}
	for _, class := range passwordCharClasses {
		if class.enabled(policy) && strings.IndexFunc(password, class.match) < 0 {
			return &PolicyViolation{Key: class.key}
		}
	}
	return nil
}
