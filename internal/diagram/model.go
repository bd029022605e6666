package diagram

// NodeKind classifies a diagram node by its step type.
type NodeKind string

const (
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition"
	NodeKindWait      NodeKind = "wait"
	NodeKindStart     NodeKind = "start"
	NodeKindEnd       NodeKind = "end"
)

const (
	startID = "__start__"
	endID   = "__end__"
)

// DiagramModel is the intermediate representation used by all renderers.
//
// Order holds the node ids along the executed chain, start and end
// included. Detached lists steps the chain never reaches.
type DiagramModel struct {
	Title    string
	Nodes    []*Node
	Edges    []Edge
	Order    []string
	Detached []string
}

// Node represents a single step in the diagram.
type Node struct {
	ID     string
	Label  string
	Kind   NodeKind
	Status *StatusOverlay
}

// StatusOverlay carries the state a run recorded for a step.
type StatusOverlay struct {
	Status     string
	DurationMs int64
	Error      string
}

// Edge connects two nodes. Label is set on edges that end the chain early.
type Edge struct {
	From  string
	To    string
	Label string
}

// swatch colors a node by step status in every renderer.
type swatch struct {
	fill, stroke, font string
}

// statusOrder fixes the classDef order in Mermaid output.
var statusOrder = []string{"completed", "failed", "running", "pending"}

var palette = map[string]swatch{
	"completed": {fill: "#2d6a2d", stroke: "#1a4a1a", font: "#ffffff"},
	"failed":    {fill: "#8b1a1a", stroke: "#5c0e0e", font: "#ffffff"},
	"running":   {fill: "#1a5276", stroke: "#0e3a52", font: "#ffffff"},
	"pending":   {fill: "#d3d3d3", stroke: "#6b6b6b", font: "#000000"},
}

func (m *DiagramModel) node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
