package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type SourceType string

const (
	SourceTypeTableCell SourceType = "table_cell"
	SourceTypeParagraph SourceType = "paragraph"
	SourceTypeListItem  SourceType = "list_item"
	SourceTypeHeading   SourceType = "heading"
	SourceTypeUnknown   SourceType = "unknown"
)

// Provenance ties a node back to the region, location and verbatim quote that
// justify its existence.
type Provenance struct {
	RegionID    string     `json:"regionId"`
	PageOrSheet string     `json:"pageOrSheet"`
	SourceType  SourceType `json:"sourceType"`
	Quote       string     `json:"quote"`
}

// Node is one item of the breakdown tree. ParentID may dangle while the draft
// is being built across passes; dangling parents are a reported anomaly, not a
// structural impossibility.
type Node struct {
	JobID       uuid.UUID  `json:"jobId"`
	ID          string     `json:"id"`
	ParentID    *string    `json:"parentId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Level       string     `json:"level,omitempty"`
	Metadata    []KeyValue `json:"metadata"`
	Provenance  Provenance `json:"provenance"`
	Inferred    bool       `json:"inferred,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
}

// NodeRecord is the persisted form of a final node. Nodes for a job are
// replaced wholesale at persist time, never updated in place.
type NodeRecord struct {
	JobID     uuid.UUID      `gorm:"type:uuid;not null;index;primaryKey" json:"job_id"`
	NodeID    string         `gorm:"column:node_id;not null;primaryKey" json:"node_id"`
	ParentID  *string        `gorm:"column:parent_id" json:"parent_id,omitempty"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Level     string         `gorm:"column:level" json:"level,omitempty"`
	Inferred  bool           `gorm:"column:inferred;not null;default:false" json:"inferred"`
	Body      datatypes.JSON `gorm:"column:body;type:jsonb" json:"body"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (NodeRecord) TableName() string { return "node" }
