package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// Специальные символы, допустимые и обязательные в пароле.
const passwordSpecialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// ValidatePassword проверяет пароль на соответствие требованиям безопасности.
// Требования:
// - От 8 до 128 символов
// - Должен содержать заглавные буквы
// - Должен содержать строчные буквы
// - Должен содержать цифры
// - Должен содержать хотя бы один специальный символ
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("пароль должен быть не менее 8 символов")
	}
	if len(password) > 128 {
		return fmt.Errorf("пароль должен быть не более 128 символов")
	}

	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case strings.ContainsRune(passwordSpecialChars, char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("пароль должен содержать хотя бы одну заглавную букву")
	}
	if !hasLower {
		return fmt.Errorf("пароль должен содержать хотя бы одну строчную букву")
	}
	if !hasNumber {
		return fmt.Errorf("пароль должен содержать хотя бы одну цифру")
	}
	if !hasSpecial {
		return fmt.Errorf("пароль должен содержать хотя бы один специальный символ")
	}

	return nil
}
