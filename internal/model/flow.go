// internal/model/flow.go
package model

import "time"

// Flow node kinds
const (
	NodeTrigger = "trigger"
	NodeStart   = "start"
	NodeMessage = "message"
	NodeDelay   = "delay"
)

// FlowNode is one step of an automation flow. Keywords applies to trigger
// nodes (comma-separated), Text to message nodes, Seconds to delay nodes.
type FlowNode struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Keywords string `json:"keywords,omitempty"`
	Text     string `json:"text,omitempty"`
	Seconds  int    `json:"seconds,omitempty"`
}

// FlowEdge connects the source node to the target node.
type FlowEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Flow is a directed graph of automation nodes. Node order is declaration
// order; the first trigger or start node is the run entry point.
type Flow struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Instance  string     `json:"instance"`
	Nodes     []FlowNode `json:"nodes"`
	Edges     []FlowEdge `json:"edges"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
