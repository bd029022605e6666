package diagram

import (
	"fmt"

	"github.com/stack21/flowengine/pkg/schema"
)

// Build walks the step chain of def the way the interpreter does and
// returns a DiagramModel. When run is non-nil its step records are laid
// over the matching nodes.
func Build(def *schema.WorkflowDefinition, run *schema.WorkflowRun) (*DiagramModel, error) {
	if def == nil {
		return nil, fmt.Errorf("diagram: workflow definition is nil")
	}

	records := make(map[string]*schema.RunStep)
	if run != nil {
		for i := range run.Steps {
			records[run.Steps[i].ID] = &run.Steps[i]
		}
	}

	m := &DiagramModel{Title: def.Name}
	if m.Title == "" {
		m.Title = def.ID
	}
	m.Nodes = append(m.Nodes, &Node{ID: startID, Label: "Start", Kind: NodeKindStart})
	m.Order = append(m.Order, startID)

	index := def.StepIndex()
	visited := make(map[string]bool, len(def.Steps))
	prev := startID
	halt := ""
	for id := def.FirstStepID(); id != ""; {
		if visited[id] {
			halt = fmt.Sprintf("revisits %s", id)
			break
		}
		step, ok := index[id]
		if !ok {
			halt = fmt.Sprintf("missing %s", id)
			break
		}
		visited[id] = true

		n := stepToNode(step)
		overlayStatus(n, records)
		m.Nodes = append(m.Nodes, n)
		m.Order = append(m.Order, id)
		m.Edges = append(m.Edges, Edge{From: prev, To: id})
		prev = id
		id = step.Next
	}

	m.Nodes = append(m.Nodes, &Node{ID: endID, Label: "End", Kind: NodeKindEnd})
	m.Order = append(m.Order, endID)
	m.Edges = append(m.Edges, Edge{From: prev, To: endID, Label: halt})

	for i := range def.Steps {
		step := &def.Steps[i]
		if visited[step.ID] || m.node(step.ID) != nil {
			continue
		}
		n := stepToNode(step)
		overlayStatus(n, records)
		m.Nodes = append(m.Nodes, n)
		m.Detached = append(m.Detached, step.ID)
	}
	return m, nil
}

func stepToNode(step *schema.WorkflowStep) *Node {
	label := step.ID
	if step.Name != "" {
		label = fmt.Sprintf("%s (%s)", step.Name, step.Type)
	}
	return &Node{ID: step.ID, Label: label, Kind: stepTypeToKind(step.Type)}
}

func stepTypeToKind(st schema.StepType) NodeKind {
	switch st {
	case schema.StepTypeCondition:
		return NodeKindCondition
	case schema.StepTypeDelay:
		return NodeKindWait
	default:
		return NodeKindAction
	}
}

func overlayStatus(n *Node, records map[string]*schema.RunStep) {
	rec, ok := records[n.ID]
	if !ok {
		return
	}
	n.Status = &StatusOverlay{
		Status:     string(rec.Status),
		DurationMs: rec.Duration,
		Error:      rec.Error,
	}
}
