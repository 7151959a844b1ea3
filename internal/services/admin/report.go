package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/month"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// FormatCSV: единственный поддерживаемый формат календарного отчёта.
const FormatCSV = "csv"

var reportHeader = []string{"type", "date", "user", "item", "quantity", "status", "notes"}

// Report: готовый файл отчёта.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

type reportRow struct {
	date   day.Date
	fields []string
}

// ExportCalendar строит отчёт по заявкам на сбор и аренду за месяц monthKey
// (YYYY-MM), упорядоченный по дате. Пустой format означает csv.
func (s *Service) ExportCalendar(ctx context.Context, monthKey, format string) (*Report, error) {
	const op = "services.admin.ExportCalendar"

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV {
		return nil, fmt.Errorf("%s: %q: %w", op, format, apperr.ErrUnsupportedFormat)
	}
	if strings.TrimSpace(monthKey) == "" {
		return nil, apperr.Validation("month parameter is required (YYYY-MM format)")
	}
	first, last, err := month.Range(monthKey)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	var (
		harvests []models.HarvestRequest
		rentals  []models.RentalRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		harvests, err = s.requests.HarvestInRange(gctx, &first, &last)
		return err
	})
	g.Go(func() (err error) {
		rentals, err = s.requests.RentalsInRange(gctx, &first, &last)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows := make([]reportRow, 0, len(harvests)+len(rentals))
	for _, r := range harvests {
		rows = append(rows, reportRow{date: r.DeliveryDate, fields: []string{
			string(models.KindHarvest),
			r.DeliveryDate.String(),
			userName(r.UserName),
			r.VegetableItem,
			strconv.Itoa(r.Quantity),
			string(r.Status),
			deref(r.Notes),
		}})
	}
	for _, r := range rentals {
		rows = append(rows, reportRow{date: r.PickupDate, fields: []string{
			string(models.KindRental),
			r.PickupDate.String(),
			userName(r.UserName),
			"オリコン (返却予定: " + r.ReturnDate.String() + ")",
			strconv.Itoa(r.Quantity),
			string(r.Status),
			deref(r.Notes),
		}})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].date.Before(rows[j].date)
	})

	var b strings.Builder
	writeCSVLine(&b, reportHeader)
	for _, r := range rows {
		b.WriteByte('\n')
		writeCSVLine(&b, r.fields)
	}

	s.log.Info("calendar report exported",
		slog.String("month", monthKey),
		slog.Int("harvest", len(harvests)),
		slog.Int("oricon", len(rentals)),
	)
	return &Report{
		Filename:    "calendar-report-" + strings.TrimSpace(monthKey) + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        []byte(b.String()),
	}, nil
}

// writeCSVLine пишет строку, заключая каждое поле в кавычки и удваивая
// кавычки внутри поля.
func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}

func userName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
