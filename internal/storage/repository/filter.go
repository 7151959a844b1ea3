package repository

import (
	"fmt"
	"strings"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// whereBuilder собирает условие WHERE с позиционными параметрами.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// requestWhere переводит фильтр списка заявок в условие по таблице alias.
// Удалённые заявки не возвращаются, если статус явно не запрошен.
func requestWhere(f models.ListFilter, alias, dateColumn string) *whereBuilder {
	w := &whereBuilder{}
	if f.Status != nil {
		w.add(alias+".status = $%d", string(*f.Status))
	} else {
		w.raw(alias + ".status <> 'deleted'")
	}
	if f.UserID != nil {
		w.add(alias+".user_id = $%d", *f.UserID)
	}
	if f.From != nil {
		w.add(alias+"."+dateColumn+" >= $%d", *f.From)
	}
	if f.To != nil {
		w.add(alias+"."+dateColumn+" <= $%d", *f.To)
	}
	return w
}

// rangeWhere строит условие по датам для выборок без пагинации.
func rangeWhere(alias, dateColumn string, from, to *day.Date) *whereBuilder {
	w := &whereBuilder{}
	w.raw(alias + ".status <> 'deleted'")
	if from != nil {
		w.add(alias+"."+dateColumn+" >= $%d", *from)
	}
	if to != nil {
		w.add(alias+"."+dateColumn+" <= $%d", *to)
	}
	return w
}
