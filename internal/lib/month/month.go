// Package month разбирает ключ месяца отчёта в формате YYYY-MM.
package month

import (
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
)

// Layout: формат ключа месяца.
const Layout = "2006-01"

// Range возвращает первый и последний день месяца, заданного ключом YYYY-MM.
func Range(key string) (day.Date, day.Date, error) {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(key), time.Local)
	if err != nil {
		return day.Date{}, day.Date{}, fmt.Errorf("month %q must be in YYYY-MM format", key)
	}
	first := day.Of(t)
	// нулевой день следующего месяца равен последнему дню текущего
	last := day.Of(time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.Local))
	return first, last, nil
}
