package service

import (
	"errors"
	"testing"

	"github.com/truckdock/internal/config"
)

func TestValidatePassword(t *testing.T) {
	strict := config.PasswordPolicyConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true, RequireSpecial: true}
	cases := []struct {
		name     string
		policy   config.PasswordPolicyConfig
		password string
		wantKey  string
	}{
		{"blank", config.PasswordPolicyConfig{}, "   ", "error.password_min_length"},
		{"short", strict, "Ab1!", "error.password_min_length"},
		{"runes counted not bytes", config.PasswordPolicyConfig{MinLength: 4}, "卡车码头", ""},
		{"no upper", strict, "abcdef1!", "error.password_require_upper"},
		{"no lower", strict, "ABCDEF1!", "error.password_require_lower"},
		{"no number", strict, "Abcdefg!", "error.password_require_number"},
		{"space is not special", strict, "Abcdef1 ", "error.password_require_special"},
		{"ok", strict, "Abcdef1!", ""},
		{"lenient", config.PasswordPolicyConfig{MinLength: 6}, "secret", ""},
	}
	for _, tc := range cases {
		err := validatePassword(tc.policy, tc.password)
		if tc.wantKey == "" {
			if err != nil {
				t.Fatalf("%s: want nil got %v", tc.name, err)
			}
			continue
		}
		if !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("%s: want ErrWeakPassword got %v", tc.name, err)
		}
		key, _, ok := PasswordPolicyError(err)
		if !ok || key != tc.wantKey {
			t.Fatalf("%s: want key %s got %s", tc.name, tc.wantKey, key)
		}
	}
}

func TestPasswordPolicyErrorIgnoresOtherErrors(t *testing.T) {
	if _, _, ok := PasswordPolicyError(ErrUserNotFound); ok {
		t.Fatalf("want non-policy error to be rejected")
	}
	_, args, ok := PasswordPolicyError(validatePassword(config.PasswordPolicyConfig{}, ""))
	if !ok || len(args) != 1 || args[0] != 1 {
		t.Fatalf("want min length 1 for unset policy got %v", args)
	}
}
