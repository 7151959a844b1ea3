// Package lifecycle содержит общие правила жизненного цикла заявок на сбор урожая
// и аренду контейнеров: таблицу переходов статусов, проверки владельца,
// валидацию количества, дат и параметров списка.
package lifecycle

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// Ограничения количества и пагинации.
const (
	MaxHarvestQuantity = 9999
	MaxRentalQuantity  = 100
	DefaultLimit       = 50
	MaxLimit           = 1000
)

var transitions = map[models.Status][]models.Status{
	models.StatusPending:  {models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusCompleted},
}

// CanTransition сообщает, допустим ли переход статуса администратором.
// Переход в deleted выполняется только через мягкое удаление.
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition возвращает ErrInvalidTransition для недопустимого перехода.
func CheckTransition(from, to models.Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, apperr.ErrInvalidTransition)
	}
	return nil
}

// CheckMutable проверяет, может ли вызывающий изменять или удалять заявку.
// Чужая заявка запрещена независимо от статуса, свою пользователь меняет только в pending.
func CheckMutable(caller models.Caller, ownerID int64, status models.Status) error {
	if caller.IsAdmin() {
		return nil
	}
	if caller.UserID != ownerID {
		return apperr.ErrForbidden
	}
	if status != models.StatusPending {
		return apperr.ErrImmutableState
	}
	return nil
}

// ParseQuantity разбирает целое количество в диапазоне [1, upper].
func ParseQuantity(n json.Number, upper int) (int, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, apperr.Validation("quantity is required")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 1 || v > int64(upper) {
		return 0, apperr.Validation(fmt.Sprintf("quantity must be an integer between 1 and %d", upper))
	}
	return int(v), nil
}

// ParseDate разбирает дату поля field.
func ParseDate(field, s string) (day.Date, error) {
	if strings.TrimSpace(s) == "" {
		return day.Date{}, apperr.Validation(field + " is required")
	}
	d, err := day.Parse(s)
	if err != nil {
		return day.Date{}, apperr.Validation(fmt.Sprintf("%s: %s", field, err.Error()))
	}
	return d, nil
}

// CheckDeliveryDate запрещает дату доставки в прошлом.
func CheckDeliveryDate(d, today day.Date) error {
	if d.Before(today) {
		return apperr.Validation("delivery date cannot be in the past")
	}
	return nil
}

// CheckRentalDates проверяет, что выдача строго в будущем, а возврат позже выдачи.
func CheckRentalDates(pickup, ret, today day.Date) error {
	if !pickup.After(today) {
		return apperr.Validation("pickup date must be a future date")
	}
	if !ret.After(pickup) {
		return apperr.Validation("return date must be after pickup date")
	}
	return nil
}

// FilterFromQuery разбирает параметры списка user_id, start_date, end_date,
// status, limit и offset.
func FilterFromQuery(q url.Values) (models.ListFilter, error) {
	f := models.ListFilter{Limit: DefaultLimit}

	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return f, apperr.Validation("user_id must be a positive integer")
		}
		f.UserID = &id
	}
	if v := q.Get("start_date"); v != "" {
		d, err := ParseDate("start_date", v)
		if err != nil {
			return f, err
		}
		f.From = &d
	}
	if v := q.Get("end_date"); v != "" {
		d, err := ParseDate("end_date", v)
		if err != nil {
			return f, err
		}
		f.To = &d
	}
	if v := q.Get("status"); v != "" {
		st := models.Status(strings.ToLower(v))
		if !st.Valid() {
			return f, apperr.Validation("status must be one of pending, approved, rejected, completed, deleted")
		}
		f.Status = &st
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return f, apperr.Validation(fmt.Sprintf("limit must be a number between 1 and %d", MaxLimit))
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperr.Validation("offset must be a non-negative number")
		}
		f.Offset = n
	}
	return f, nil
}

// ScopeFilter проверяет пагинацию и ограничивает обычного пользователя его заявками.
func ScopeFilter(caller models.Caller, f models.ListFilter) (models.ListFilter, error) {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		return f, apperr.Validation(fmt.Sprintf("limit must be a number between 1 and %d", MaxLimit))
	}
	if f.Offset < 0 {
		return f, apperr.Validation("offset must be a non-negative number")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, apperr.Validation("end_date must not be before start_date")
	}
	if !caller.IsAdmin() {
		id := caller.UserID
		f.UserID = &id
	}
	return f, nil
}
