// Package day реализует работу с датами с точностью до дня.
//
// Все сравнения дат заявок выполняются после отбрасывания времени суток
// по локальным часам сервера.
package day

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Layout: формат даты в API и CSV-отчётах.
const Layout = "2006-01-02"

// Clock возвращает текущее время. Подменяется в тестах.
type Clock func() time.Time

// Truncate отбрасывает время суток в локальной зоне.
func Truncate(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Parse разбирает дату в формате YYYY-MM-DD.
func Parse(s string) (Date, error) {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("date %q must be in YYYY-MM-DD format", s)
	}
	return Date{Time: t}, nil
}

// Today возвращает текущую дату по часам clock.
func Today(clock Clock) Date {
	if clock == nil {
		clock = time.Now
	}
	return Date{Time: Truncate(clock())}
}

// Date: календарная дата без времени суток.
type Date struct {
	time.Time
}

// Of создаёт Date из произвольного времени.
func Of(t time.Time) Date {
	return Date{Time: Truncate(t)}
}

// String возвращает дату в формате YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(Layout)
}

// Before сообщает, что d раньше other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After сообщает, что d позже other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal сообщает, что даты совпадают.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// AddDays сдвигает дату на n дней.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// MarshalJSON кодирует дату строкой YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON разбирает дату из строки YYYY-MM-DD.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan реализует sql.Scanner для колонок DATE.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		y, m, dd := v.Date()
		*d = Date{Time: time.Date(y, m, dd, 0, 0, 0, 0, time.Local)}
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("day.Date: cannot scan %T", src)
	}
	return nil
}

// Value реализует driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
