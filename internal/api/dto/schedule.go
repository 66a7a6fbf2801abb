package dto

import "time"

type ConflictResponse struct {
	First  EventResponse `json:"first"`
	Second EventResponse `json:"second"`
	Kind   string        `json:"kind"`
}

type DaySummary struct {
	Date           string  `json:"date"`
	EventCount     int     `json:"event_count"`
	JobCount       int     `json:"job_count"`
	SiteVisitCount int     `json:"site_visit_count"`
	TravelMinutes  int     `json:"travel_minutes"`
	TravelKm       float64 `json:"travel_km"`
}

type DayResponse struct {
	Date                  string             `json:"date"`
	Events                []EventResponse    `json:"events"`
	Summary               DaySummary         `json:"summary"`
	Conflicts             []ConflictResponse `json:"conflicts"`
	EstimatedRevenueCents int64              `json:"estimated_revenue_cents"`
}

type PeriodTotals struct {
	EventCount            int     `json:"event_count"`
	JobCount              int     `json:"job_count"`
	SiteVisitCount        int     `json:"site_visit_count"`
	TravelMinutes         int     `json:"travel_minutes"`
	TravelKm              float64 `json:"travel_km"`
	EstimatedRevenueCents int64   `json:"estimated_revenue_cents"`
}

type WeekResponse struct {
	Start  string       `json:"start"`
	End    string       `json:"end"`
	Days   []DaySummary `json:"days"`
	Totals PeriodTotals `json:"totals"`
}

type MonthResponse struct {
	Start        string         `json:"start"`
	End          string         `json:"end"`
	Days         []DaySummary   `json:"days"`
	EventsByType map[string]int `json:"events_by_type"`
	Totals       PeriodTotals   `json:"totals"`
}

type ListConflictResponse struct {
	Conflicts []ConflictResponse `json:"conflicts"`
}

type SlotResponse struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Quality         string    `json:"quality"`
}

type ListSlotResponse struct {
	Slots []SlotResponse `json:"slots"`
}
