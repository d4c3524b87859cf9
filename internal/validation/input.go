package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinFullNameLength = 2
	MaxFullNameLength = 100

	MaxCategoryNameLength        = 100
	MaxCategoryDescriptionLength = 1000

	MinArticleTitleLength   = 3
	MaxArticleTitleLength   = 200
	MaxArticleSummaryLength = 500
	MinArticleContentLength = 1
	MaxArticleContentLength = 200000

	MinCollectionTitleLength       = 3
	MaxCollectionTitleLength       = 200
	MaxCollectionDescriptionLength = 2000

	MaxTagNameLength  = 50
	MaxTagsPerArticle = 20
)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateFullName проверяет отображаемое имя пользователя.
func ValidateFullName(fullName string) error {
	if fullName == "" {
		return fmt.Errorf("полное имя обязательно")
	}

	fullName = strings.TrimSpace(fullName)

	if err := ValidateLength("полное имя", fullName, MinFullNameLength, MaxFullNameLength); err != nil {
		return err
	}

	fullNameRegex := regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9\s\-_.,'()]+$`)
	if !fullNameRegex.MatchString(fullName) {
		return fmt.Errorf("полное имя содержит недопустимые символы")
	}

	return nil
}

// ValidateCategoryName проверяет название рубрики.
func ValidateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("название рубрики не может быть пустым")
	}

	return ValidateLength("название рубрики", strings.TrimSpace(name), 1, MaxCategoryNameLength)
}

// ValidateHexColor проверяет цвет рубрики в формате #RRGGBB.
func ValidateHexColor(color string) error {
	if color == "" {
		return nil
	}

	colorRegex := regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	if !colorRegex.MatchString(color) {
		return fmt.Errorf("цвет должен быть в формате #RRGGBB")
	}

	return nil
}

// ValidateArticleTitle проверяет заголовок статьи.
func ValidateArticleTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок статьи обязателен")
	}

	return ValidateLength("заголовок статьи", strings.TrimSpace(title), MinArticleTitleLength, MaxArticleTitleLength)
}

// ValidateArticleContent проверяет текст статьи.
func ValidateArticleContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("текст статьи обязателен")
	}

	return ValidateLength("текст статьи", content, MinArticleContentLength, MaxArticleContentLength)
}

// ValidateCollectionTitle проверяет название сборника.
func ValidateCollectionTitle(title string) error {
	if title == "" {
		return fmt.Errorf("название сборника обязательно")
	}

	return ValidateLength("название сборника", strings.TrimSpace(title), MinCollectionTitleLength, MaxCollectionTitleLength)
}

// ValidateTags проверяет набор меток статьи.
func ValidateTags(tags []string) error {
	if len(tags) > MaxTagsPerArticle {
		return fmt.Errorf("количество меток не может превышать %d", MaxTagsPerArticle)
	}

	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return fmt.Errorf("метка не может быть пустой")
		}

		if utf8.RuneCountInString(tag) > MaxTagNameLength {
			return fmt.Errorf("метка не может быть длиннее %d символов", MaxTagNameLength)
		}

		lower := strings.ToLower(tag)
		if seen[lower] {
			return fmt.Errorf("метка %q указана дважды", tag)
		}
		seen[lower] = true
	}

	return nil
}
