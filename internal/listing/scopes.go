package listing

import (
	"strings"

	"gorm.io/gorm"
)

// Экранирование для LIKE: '!' работает одинаково в postgres, mysql и sqlite,
// в отличие от обратного слэша.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern: шаблон LIKE для регистронезависимого поиска подстроки.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Search: OR по фиксированному списку текстовых колонок.
func Search(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		like := ContainsPattern(term)
		parts := make([]string, 0, len(columns))
		args := make([]any, 0, len(columns))
		for _, c := range columns {
			parts = append(parts, "LOWER("+c+") LIKE ? ESCAPE '!'")
			args = append(args, like)
		}
		return db.Where("("+strings.Join(parts, " OR ")+")", args...)
	}
}

// Contains: регистронезависимая подстрока по одной колонке; пустое значение не фильтрует.
func Contains(column, value string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		value = strings.TrimSpace(value)
		if value == "" {
			return db
		}
		return db.Where("LOWER("+column+") LIKE ? ESCAPE '!'", ContainsPattern(value))
	}
}

// Equals: точное совпадение; пустое значение не фильтрует.
func Equals[T ~string](column string, value T) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if strings.TrimSpace(string(value)) == "" {
			return db
		}
		return db.Where(column+" = ?", string(value))
	}
}

// Archived применяет видимость к колонке archived.
func Archived(column string, v Visibility) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch v {
		case VisibleAll:
			return db
		case VisibleArchived:
			return db.Where(column+" = ?", true)
		default:
			return db.Where(column+" = ?", false)
		}
	}
}

// Paginate ограничивает выборку диапазоном страницы.
func Paginate(p Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit())
	}
}
