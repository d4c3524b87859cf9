package validation

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	valid := []string{
		"Str0ng!Pass",
		"Aa1!aaaa",
		"Очень#Secret1",
	}
	for _, p := range valid {
		if err := ValidatePassword(p); err != nil {
			t.Errorf("ValidatePassword(%q) = %v, ожидался nil", p, err)
		}
	}

	invalid := []struct {
		name     string
		password string
	}{
		{"короткий", "Aa1!x"},
		{"слишком длинный", "Aa1!" + strings.Repeat("x", 125)},
		{"без заглавных", "str0ng!pass"},
		{"без строчных", "STR0NG!PASS"},
		{"без цифр", "Strong!Pass"},
		{"без спецсимволов", "Str0ngPass"},
		{"пустой", ""},
	}
	for _, tc := range invalid {
		if err := ValidatePassword(tc.password); err == nil {
			t.Errorf("ValidatePassword(%s %q): ожидалась ошибка", tc.name, tc.password)
		}
	}
}
