// Пакет model — доменные модели LMS.
package model

import "time"

// CourseLevel — уровень сложности курса.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "BEGINNER"
	LevelIntermediate CourseLevel = "INTERMEDIATE"
	LevelAdvanced     CourseLevel = "ADVANCED"
)

// CourseStatus — статус публикации курса.
type CourseStatus string

const (
	StatusDraft     CourseStatus = "DRAFT"
	StatusPublished CourseStatus = "PUBLISHED"
	StatusArchived  CourseStatus = "ARCHIVED"
)

// CourseCategories — допустимые категории курсов.
var CourseCategories = []string{
	"Development",
	"Business",
	"Finance",
	"IT & Software",
	"Office Productivity",
	"Personal Development",
	"Design",
	"Marketing",
	"Health & Fitness",
	"Music",
	"Teaching & Academics",
}

// IsValidCategory проверяет, входит ли категория в список допустимых.
func IsValidCategory(c string) bool {
	for _, v := range CourseCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Course — курс LMS. FileKey — ключ изображения обложки в объектном хранилище.
type Course struct {
	ID               string
	Title            string
	Description      string
	SmallDescription string
	FileKey          string
	Price            int
	Duration         int
	Level            CourseLevel
	Category         string
	Slug             string
	Status           CourseStatus
	UserID           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
