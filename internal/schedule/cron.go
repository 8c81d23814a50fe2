package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер стандартных 5-полевых cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// NextDue вычисляет следующее время запуска после from с учётом
// timezone. Невалидный timezone откатывается на UTC; результат
// возвращается в UTC.
func NextDue(cronExpr, timezone string, from time.Time) (time.Time, error) {
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}

	spec, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}

	return spec.Next(from.In(loc)).UTC(), nil
}
