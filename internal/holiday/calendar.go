/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package holiday computes the Brazilian national holiday calendar used to
// seed the advisory holiday table.
package holiday

import (
	"time"

	"github.com/friendsincode/pauta/internal/models"
)

// Easter returns Easter Sunday for a Gregorian year (Meeus/Jones/Butcher
// algorithm), at UTC midnight.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ForYear returns the national calendar for one year: the fixed dates plus
// the Easter-derived movable dates. Carnival and Corpus Christi are
// facultative observances; they warn but never block.
func ForYear(year int) []models.Holiday {
	fixed := []struct {
		month time.Month
		day   int
		name  string
		class models.HolidayClass
	}{
		{time.January, 1, "Confraternização Universal", models.HolidayNational},
		{time.April, 21, "Tiradentes", models.HolidayNational},
		{time.May, 1, "Dia do Trabalho", models.HolidayNational},
		{time.September, 7, "Independência do Brasil", models.HolidayNational},
		{time.October, 12, "Nossa Senhora Aparecida", models.HolidayNational},
		{time.November, 2, "Finados", models.HolidayNational},
		{time.November, 15, "Proclamação da República", models.HolidayNational},
		{time.November, 20, "Dia da Consciência Negra", models.HolidayNational},
		{time.December, 25, "Natal", models.HolidayNational},
	}

	easter := Easter(year)
	movable := []struct {
		offset int // days relative to Easter Sunday
		name   string
		class  models.HolidayClass
	}{
		{-48, "Carnaval", models.HolidayObservance},
		{-47, "Carnaval", models.HolidayObservance},
		{-2, "Sexta-feira Santa", models.HolidayNational},
		{0, "Páscoa", models.HolidayObservance},
		{60, "Corpus Christi", models.HolidayObservance},
	}

	holidays := make([]models.Holiday, 0, len(fixed)+len(movable))
	for _, entry := range fixed {
		holidays = append(holidays, models.Holiday{
			Date:  time.Date(year, entry.month, entry.day, 0, 0, 0, 0, time.UTC),
			Name:  entry.name,
			Class: entry.class,
		})
	}
	for _, entry := range movable {
		holidays = append(holidays, models.Holiday{
			Date:  easter.AddDate(0, 0, entry.offset),
			Name:  entry.name,
			Class: entry.class,
		})
	}
	return holidays
}
