package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptyCity возвращается на пустой ввод города.
	ErrEmptyCity = errors.New("город не задан")
	// ErrEmptyCategories возвращается, если после разбора не осталось ни одной категории.
	ErrEmptyCategories = errors.New("категории не заданы")
	// ErrBadTime возвращается на время вне формата ЧЧ:ММ.
	ErrBadTime = errors.New("некорректное время")
	// ErrBadInterval возвращается на интервал, который не является положительным числом.
	ErrBadInterval = errors.New("некорректный интервал")
)

// BadCategoryError называет первый токен, не попавший в словарь категорий.
type BadCategoryError struct {
	Token string
}

func (e *BadCategoryError) Error() string {
	return fmt.Sprintf("%s не категория", e.Token)
}

// ParseCity принимает любой непустой текст как название города.
func ParseCity(input string) (string, error) {
	city := strings.TrimSpace(input)
	if city == "" {
		return "", ErrEmptyCity
	}
	return city, nil
}

// ParseCategories разбирает список категорий через запятую.
// Каждый токен после обрезки пробелов обязан точно совпасть со словарём;
// на первом же чужом токене разбор прекращается.
func ParseCategories(input string) ([]string, error) {
	parts := strings.Split(input, ",")
	categories := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		if !IsCategory(token) {
			return nil, &BadCategoryError{Token: token}
		}
		categories = append(categories, token)
	}
	if len(categories) == 0 {
		return nil, ErrEmptyCategories
	}
	return categories, nil
}

// ParseNotificationTime разбирает время формата ЧЧ:ММ. Секунды всегда нулевые.
func ParseNotificationTime(input string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(input), ":")
	if len(parts) != 2 {
		return time.Time{}, ErrBadTime
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, ErrBadTime
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, ErrBadTime
	}
	return time.Date(0, time.January, 1, hour, minute, 0, 0, time.UTC), nil
}

// ParseEventsInterval разбирает положительное целое количество дней вперёд.
func ParseEventsInterval(input string) (int, error) {
	interval, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || interval <= 0 {
		return 0, ErrBadInterval
	}
	return interval, nil
}
