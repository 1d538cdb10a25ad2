package dispatch

import (
	"fmt"
	"strings"
)

// compiler accumulates the plan while walking handler and dependency
// parameter declarations.
type compiler struct {
	plan       *ClientHandler
	nodes      map[*Dependency]*depNode
	nodeList   []*depNode
	fieldsSeen map[int]map[string]struct{}
}

// Build compiles the declarations into an immutable ClientHandler.
// Every registration-time failure surfaces here: nil callables, unknown
// or non-expandable slot indices, ambiguous field bindings, and
// dependency cycles never reach request time.
func (b *HandlerBuilder) Build() (*ClientHandler, error) {
	if b.fn == nil {
		return nil, ErrNilHandlerFunc
	}

	plan := &ClientHandler{
		fn:          b.fn,
		slots:       make([]argSlot, len(b.slots)),
		expandable:  -1,
		result:      b.result,
		errPackager: b.errPackager,
	}
	if plan.result == nil {
		plan.result = NoopPackager{}
	}
	if plan.errPackager == nil {
		plan.errPackager = CodeErrorPackager{}
	}

	for i, spec := range b.slots {
		if spec.proto == nil {
			return nil, fmt.Errorf("%w: argument slot %d", ErrNilPrototype, i)
		}
		plan.slots[i] = argSlot{structured: spec.structured, proto: spec.proto}
		if spec.structured && plan.expandable < 0 {
			plan.expandable = i
		}
	}

	c := &compiler{
		plan:       plan,
		nodes:      make(map[*Dependency]*depNode),
		fieldsSeen: make(map[int]map[string]struct{}),
	}
	if err := c.parseParams(0, nil, b.params); err != nil {
		return nil, err
	}

	order, err := c.sortNodes()
	if err != nil {
		return nil, err
	}
	plan.order = order
	plan.consumers = 1 + len(c.nodeList)

	return plan, nil
}

// parseParams classifies the declared parameters of one consumer.
// consumer 0 with a nil node is the handler itself.
func (c *compiler) parseParams(consumer int, node *depNode, params []paramSpec) error {
	for _, p := range params {
		if err := c.markField(consumer, p.field); err != nil {
			return err
		}

		switch p.source {
		case srcMarker:
			if p.marker == nil {
				return fmt.Errorf("%w: parameter %q", ErrNilMarker, p.field)
			}
			c.addMarkerDest(p.marker, fieldDest{consumer: consumer, field: p.field})

		case srcDependency:
			if p.dep == nil {
				return fmt.Errorf("%w: parameter %q", ErrNilDependency, p.field)
			}
			target, err := c.resolveNode(p.dep)
			if err != nil {
				return err
			}
			target.dests = append(target.dests, fieldDest{consumer: consumer, field: p.field})
			if node != nil {
				node.needs = append(node.needs, target)
			}

		case srcField:
			if err := c.addInjectedField(c.plan.expandable, consumer, p); err != nil {
				return err
			}

		case srcIndexedField:
			if p.slot < 0 || p.slot >= len(c.plan.slots) {
				return fmt.Errorf("%w: parameter %q at slot %d", ErrSlotOutOfRange, p.field, p.slot)
			}
			if p.slot != c.plan.expandable {
				return fmt.Errorf("%w: parameter %q at slot %d", ErrSlotNotExpandable, p.field, p.slot)
			}
			if err := c.addInjectedField(p.slot, consumer, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveNode returns the graph node for a dependency, creating and
// recursively parsing it on first sight. One node exists per distinct
// *Dependency per handler registration; revisits only add consumers.
func (c *compiler) resolveNode(dep *Dependency) (*depNode, error) {
	if node, ok := c.nodes[dep]; ok {
		return node, nil
	}

	node := &depNode{dep: dep, consumer: 1 + len(c.nodeList)}
	c.nodes[dep] = node
	c.nodeList = append(c.nodeList, node)

	// Memoized before recursing so cyclic declarations terminate here
	// and are caught by sortNodes.
	if err := c.parseParams(node.consumer, node, dep.params); err != nil {
		return nil, err
	}
	return node, nil
}

// addInjectedField records a sidecar field on the expandable slot and
// its destination consumer.
func (c *compiler) addInjectedField(slot, consumer int, p paramSpec) error {
	if slot < 0 {
		return fmt.Errorf("%w: parameter %q", ErrNoExpandableSlot, p.field)
	}
	if p.proto == nil {
		return fmt.Errorf("%w: injected field %q", ErrNilPrototype, p.field)
	}

	dest := fieldDest{consumer: consumer, field: p.field}
	fields := c.plan.slots[slot].fields
	for i := range fields {
		if fields[i].name == p.field {
			fields[i].dests = append(fields[i].dests, dest)
			return nil
		}
	}
	c.plan.slots[slot].fields = append(fields, injectedField{
		name:  p.field,
		proto: p.proto,
		dests: []fieldDest{dest},
	})
	return nil
}

// addMarkerDest coalesces identical markers so each is extracted exactly
// once per request.
func (c *compiler) addMarkerDest(m Marker, dest fieldDest) {
	for i := range c.plan.markers {
		if sameMarker(c.plan.markers[i].marker, m) {
			c.plan.markers[i].dests = append(c.plan.markers[i].dests, dest)
			return
		}
	}
	c.plan.markers = append(c.plan.markers, markerEntry{marker: m, dests: []fieldDest{dest}})
}

// markField rejects a second binding for the same consumer parameter.
func (c *compiler) markField(consumer int, field string) error {
	seen, ok := c.fieldsSeen[consumer]
	if !ok {
		seen = make(map[string]struct{})
		c.fieldsSeen[consumer] = seen
	}
	if _, dup := seen[field]; dup {
		return fmt.Errorf("%w: parameter %q bound twice", ErrAmbiguousField, field)
	}
	seen[field] = struct{}{}
	return nil
}

// sortNodes orders the dependency graph by repeatedly extracting the
// layer of nodes whose own dependencies are all resolved. Nodes left
// over when no layer can be extracted form a cycle, which fails
// registration.
func (c *compiler) sortNodes() ([]*depNode, error) {
	resolved := make(map[*depNode]struct{}, len(c.nodeList))
	order := make([]*depNode, 0, len(c.nodeList))

	for len(order) < len(c.nodeList) {
		var layer []*depNode
		for _, n := range c.nodeList {
			if _, done := resolved[n]; done {
				continue
			}
			ready := true
			for _, need := range n.needs {
				if _, done := resolved[need]; !done {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, n)
			}
		}

		if len(layer) == 0 {
			var stuck []string
			for _, n := range c.nodeList {
				if _, done := resolved[n]; !done {
					stuck = append(stuck, n.dep.name)
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
		}

		for _, n := range layer {
			resolved[n] = struct{}{}
		}
		order = append(order, layer...)
	}

	return order, nil
}
