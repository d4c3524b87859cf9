package slugify

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
)

// Make формирует URL-безопасный slug из человекочитаемого названия:
// нижний регистр, пунктуация удаляется, пробелы и разделители
// схлопываются в дефисы, крайние дефисы обрезаются.
func Make(name string) string {
	return slug.Make(name)
}

// TakenFunc сообщает, занят ли slug в хранилище.
type TakenFunc func(ctx context.Context, candidate string) (bool, error)

// Unique возвращает base, если он свободен, иначе подбирает вариант
// base-1, base-2, … перепроверяя хранилище после каждой попытки.
// Результат детерминирован при одинаковом множестве занятых slug'ов.
func Unique(ctx context.Context, base string, taken TakenFunc) (string, error) {
	exists, err := taken(ctx, base)
	if err != nil {
		return "", fmt.Errorf("slugify: проверка slug %q: %w", base, err)
	}
	if !exists {
		return base, nil
	}

	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d", base, counter)
		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slugify: проверка slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}
