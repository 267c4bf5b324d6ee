// Package domain defines the normalized domain types for the cached view of
// a GitHub organization and its Projects v2 boards. These types represent the
// core concepts independent of the GitHub GraphQL API structure.
package domain

import (
	"strings"
	"time"
)

// Repo is a repository cached for name resolution.
type Repo struct {
	Name     string // Repository name within the organization
	FullName string // "org/name" form
}

// Person is an organization member or outside collaborator.
type Person struct {
	Login     string
	AvatarURL string
}

// Record is a lightweight projection of a project item (issue or PR),
// cached only for suggestion and lookup. Full detail is fetched on demand.
type Record struct {
	Title  string
	Number int    // Issue/PR number within its repository
	Repo   string // Repository name (without owner)
	State  string // OPEN, CLOSED, or MERGED
}

// Closed reports whether the record is in a terminal state and should be
// excluded from suggestions.
func (r Record) Closed() bool {
	return strings.EqualFold(r.State, "CLOSED") || strings.EqualFold(r.State, "MERGED")
}

// Field is a project field definition. Selection-like fields carry their
// enumerated options as a name -> option ID map; iteration fields merge
// their configured iterations into the same map.
type Field struct {
	ID       string
	Name     string
	DataType string            // TEXT, NUMBER, DATE, SINGLE_SELECT, ITERATION, STATUS
	Options  map[string]string // Option name -> option/iteration node ID
}

// Selection reports whether the field takes one of an enumerated option set.
func (f Field) Selection() bool {
	switch f.DataType {
	case FieldTypeSingleSelect, FieldTypeIteration, FieldTypeStatus:
		return true
	}
	return false
}

// Project is a GitHub Project v2 with its cached fields and first page of
// records.
type Project struct {
	ID      string // GraphQL node ID
	Number  int
	Title   string
	URL     string
	Records []Record
	Fields  []Field
}

// FieldByID returns the field with the given node ID.
func (p *Project) FieldByID(id string) (Field, bool) {
	for _, f := range p.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// FieldByName returns the field with the given name, case-insensitively.
func (p *Project) FieldByName(name string) (Field, bool) {
	for _, f := range p.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Snapshot is an immutable, fully-populated point-in-time copy of all the
// remote collections the system caches. It is never mutated after being
// built; a refresh installs a brand-new Snapshot.
type Snapshot struct {
	Repos     []Repo
	People    []Person
	Projects  []Project
	FetchedAt time.Time
}

// ProjectByID returns the project with the given node ID.
func (s *Snapshot) ProjectByID(id string) (*Project, bool) {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return &s.Projects[i], true
		}
	}
	return nil, false
}

// ProjectByTitle returns the project with the given title, case-insensitively.
func (s *Snapshot) ProjectByTitle(title string) (*Project, bool) {
	for i := range s.Projects {
		if strings.EqualFold(s.Projects[i].Title, title) {
			return &s.Projects[i], true
		}
	}
	return nil, false
}

// ItemRef is a live lookup result for a single project item: its GraphQL
// node ID plus the current field values keyed by field name.
type ItemRef struct {
	ID     string
	Title  string
	Values map[string]string
}

// Field type constants as reported by the GraphQL API.
const (
	FieldTypeSingleSelect = "SINGLE_SELECT"
	FieldTypeText         = "TEXT"
	FieldTypeNumber       = "NUMBER"
	FieldTypeDate         = "DATE"
	FieldTypeIteration    = "ITERATION"
	FieldTypeStatus       = "STATUS"
)
