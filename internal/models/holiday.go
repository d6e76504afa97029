/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// HolidayClass ranks how binding a holiday is. None of them block booking;
// the engine only surfaces them as advisories.
type HolidayClass string

const (
	HolidayNational   HolidayClass = "nacional"
	HolidayRegional   HolidayClass = "estadual"
	HolidayMunicipal  HolidayClass = "municipal"
	HolidayObservance HolidayClass = "facultativo"
)

// Holiday is a calendar-date fact. Several holidays may share a date.
type Holiday struct {
	ID    string       `gorm:"type:uuid;primaryKey" json:"id"`
	Date  time.Time    `gorm:"type:date;index:idx_holidays_date;not null" json:"date"`
	Name  string       `gorm:"type:varchar(255);not null" json:"name"`
	Class HolidayClass `gorm:"type:varchar(32);not null" json:"class"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Holiday) TableName() string {
	return "holidays"
}
