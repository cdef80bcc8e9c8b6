// Package twoway tracks which handles are joined by two-way bindings.
//
// Membership is stored explicitly as handle→group and group→members maps
// instead of a union-find forest, because groups must also shrink and split
// when a binding is removed. Removal and rebuild cost O(group size).
package twoway

// GroupID identifies a two-way group. The zero GroupID means "ungrouped".
type GroupID uint32

// Manager maintains the two-way group membership of handles.
// A group always holds at least two members.
//
// Manager is not safe for concurrent use.
type Manager[K comparable] struct {
	groupOf map[K]GroupID
	members map[GroupID][]K
	lastID  GroupID
}

// New creates an empty manager.
func New[K comparable]() *Manager[K] {
	return &Manager[K]{
		groupOf: make(map[K]GroupID),
		members: make(map[GroupID][]K),
	}
}

// Find returns the group of h, or 0 if h is ungrouped.
func (m *Manager[K]) Find(h K) GroupID {
	return m.groupOf[h]
}

// Members returns the members of g in insertion order.
// The returned slice is owned by the manager and must not be modified.
func (m *Manager[K]) Members(g GroupID) []K {
	return m.members[g]
}

// GroupCount returns the number of groups.
func (m *Manager[K]) GroupCount() int {
	return len(m.members)
}

// Len returns the number of grouped handles.
func (m *Manager[K]) Len() int {
	return len(m.groupOf)
}

// Groups calls fn for every group. The order is unspecified.
func (m *Manager[K]) Groups(fn func(GroupID, []K)) {
	for g, members := range m.members {
		fn(g, members)
	}
}

// Merge joins a and b into one group and returns its id.
// The smaller group is moved into the larger one.
func (m *Manager[K]) Merge(a, b K) GroupID {
	ga, gb := m.groupOf[a], m.groupOf[b]
	switch {
	case ga == 0 && gb == 0:
		g := m.newID()
		m.members[g] = []K{a, b}
		m.groupOf[a] = g
		m.groupOf[b] = g
		return g
	case ga == 0:
		m.add(gb, a)
		return gb
	case gb == 0:
		m.add(ga, b)
		return ga
	case ga == gb:
		return ga
	}

	if len(m.members[ga]) < len(m.members[gb]) {
		ga, gb = gb, ga
	}
	for _, h := range m.members[gb] {
		m.groupOf[h] = ga
	}
	m.members[ga] = append(m.members[ga], m.members[gb]...)
	delete(m.members, gb)
	return ga
}

// Remove takes h out of its group without touching the other members.
// A group left with a single member is dissolved.
// Returns false if h was ungrouped.
func (m *Manager[K]) Remove(h K) bool {
	g, ok := m.groupOf[h]
	if !ok {
		return false
	}
	delete(m.groupOf, h)

	members := m.members[g]
	for i, member := range members {
		if member == h {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) < 2 {
		m.dissolve(g, members)
		return true
	}
	m.members[g] = members
	return true
}

// Rebuild recomputes the connected components of g after an edge between
// two of its members went away. neighbors must return the handles joined
// to h by a two-way binding. Every component with at least two members
// becomes a group of its own; single members become ungrouped.
func (m *Manager[K]) Rebuild(g GroupID, neighbors func(h K) []K) {
	old, ok := m.members[g]
	if !ok {
		return
	}
	m.dissolve(g, old)

	inGroup := make(map[K]bool, len(old))
	for _, h := range old {
		inGroup[h] = true
	}

	var queue []K
	for _, start := range old {
		if !inGroup[start] {
			continue
		}
		inGroup[start] = false
		component := []K{start}
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			h := queue[0]
			queue = queue[1:]
			for _, n := range neighbors(h) {
				if inGroup[n] {
					inGroup[n] = false
					component = append(component, n)
					queue = append(queue, n)
				}
			}
		}
		if len(component) < 2 {
			continue
		}
		id := m.newID()
		m.members[id] = component
		for _, h := range component {
			m.groupOf[h] = id
		}
	}
}

// Clear removes every group.
func (m *Manager[K]) Clear() {
	clear(m.groupOf)
	clear(m.members)
}

func (m *Manager[K]) add(g GroupID, h K) {
	m.members[g] = append(m.members[g], h)
	m.groupOf[h] = g
}

func (m *Manager[K]) dissolve(g GroupID, members []K) {
	for _, h := range members {
		delete(m.groupOf, h)
	}
	delete(m.members, g)
}

func (m *Manager[K]) newID() GroupID {
	m.lastID++
	if m.lastID == 0 {
		m.lastID = 1
	}
	return m.lastID
}
