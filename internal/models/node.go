// Package models defines the domain types for Gebo.
package models

import "time"

// NodeKind classifies a vault document.
type NodeKind string

// Known node kinds. Unrecognised kind hints fall back to KindNote.
const (
	KindNote          NodeKind = "note"
	KindDashboard     NodeKind = "dashboard"
	KindTemplate      NodeKind = "template"
	KindDocumentation NodeKind = "documentation"
	KindSystemDesign  NodeKind = "system-design"
	KindCanvas        NodeKind = "canvas"
	KindCodeSnippet   NodeKind = "code-snippet"
)

// ParseKind maps a frontmatter kind hint to a NodeKind.
func ParseKind(s string) NodeKind {
	switch NodeKind(s) {
	case KindDashboard, KindTemplate, KindDocumentation, KindSystemDesign, KindCanvas, KindCodeSnippet:
		return NodeKind(s)
	default:
		return KindNote
	}
}

// Edge types. Every live or archived edge carries exactly one of these.
const (
	EdgeWiki      = "wiki"
	EdgeBacklink  = "backlink"
	EdgeTagPeer   = "tag-peer"
	EdgeAliasPeer = "alias-peer"
	EdgeTemplate  = "template"
)

// Property is one frontmatter key/value pair. Order is preserved from the
// source document, so properties are a slice rather than a map.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Heading is one Markdown heading with its anchor slug.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Slug  string `json:"slug"`
}

// Links groups the link sets of a node.
type Links struct {
	Outbound []string `json:"outbound"`
	Inbound  []string `json:"inbound"`
	External []string `json:"external"`
}

// Dependencies groups declared dependency relations of a node.
type Dependencies struct {
	Requires    []string `json:"requires"`
	RequiredBy  []string `json:"required_by"`
	TemplateRef string   `json:"template_ref,omitempty"`
}

// Health is the validation outcome for a node. Score is always in [0,100].
type Health struct {
	Score           int       `json:"score"`
	Errors          []string  `json:"errors"`
	Warnings        []string  `json:"warnings"`
	LastValidatedAt time.Time `json:"last_validated_at"`
}

// Node represents one vault document in the graph.
type Node struct {
	ID           string       `json:"id"`
	Kind         NodeKind     `json:"kind"`
	Title        string       `json:"title,omitempty"`
	Checksum     string       `json:"checksum"`
	Properties   []Property   `json:"properties,omitempty"`
	Headings     []Heading    `json:"headings,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Aliases      []string     `json:"aliases,omitempty"`
	Links        Links        `json:"links"`
	Dependencies Dependencies `json:"dependencies"`
	Health       Health       `json:"health"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Prop returns the first property value for key and whether it was present.
func (n *Node) Prop(key string) (string, bool) {
	for _, p := range n.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Orphan reports whether the node has no inbound and no outbound links.
func (n *Node) Orphan() bool {
	return len(n.Links.Outbound) == 0 && len(n.Links.Inbound) == 0
}

// Edge is a typed, weighted relation between two nodes.
type Edge struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Type     string  `json:"type"`
	Weight   float64 `json:"weight"`
	Metadata string  `json:"metadata,omitempty"`
}

// ArchivedNode is an append-only snapshot of a node taken at deletion time.
type ArchivedNode struct {
	OriginalID    string    `json:"original_id"`
	ArchivedAt    time.Time `json:"archived_at"`
	ArchiveReason string    `json:"archive_reason"`
	Snapshot      Node      `json:"snapshot"`
}

// ArchivedEdge is an append-only snapshot of an edge taken at deletion time.
type ArchivedEdge struct {
	Edge
	ArchivedAt    time.Time `json:"archived_at"`
	ArchiveReason string    `json:"archive_reason"`
}

// GraphMetrics are aggregate figures over the live graph.
type GraphMetrics struct {
	TotalNodes  int     `json:"total_nodes"`
	TotalEdges  int     `json:"total_edges"`
	OrphanCount int     `json:"orphan_count"`
	OrphanRate  float64 `json:"orphan_rate"`
}

// ArchiveStats summarise the archive tables.
type ArchiveStats struct {
	Nodes  int       `json:"nodes"`
	Edges  int       `json:"edges"`
	Oldest time.Time `json:"oldest,omitempty"`
}

// Neighbors groups the computed neighbor sets of a node.
type Neighbors struct {
	Direct    []string `json:"direct"`
	TagPeers  []string `json:"tag_peers"`
	TypePeers []string `json:"type_peers"`
}

// DocMeta is a lightweight listing entry for one vault file.
type DocMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
