package domain

import "time"

// Group is a set of records judged to denote the same real-world market.
// Created by the grouping engine, finalized (title + confidence) by the
// summarizer, then consumed once by the aggregator. Never persisted as-is.
type Group struct {
	Members    []NormalizedRecord
	Title      string
	Confidence float64
}

// UnifiedGroup is the persisted form of a finalized Group, one row per group
// per pipeline run.
type UnifiedGroup struct {
	ID         string // uuid
	RunID      string
	Title      string
	Confidence float64
	Size       int
	CreatedAt  time.Time
}

// GroupMember is the persisted junction row linking a unified group to one
// per-site record.
type GroupMember struct {
	GroupID   string
	Site      Site
	ProductID string
	Title     string
	Price     *float64
	URL       string
}
