package topology

// Order returns the forward evaluation order: every component appears after
// all of its upstream components. Among components that are ready at the same
// time the one declared first wins, so the result is deterministic.
func (g Graph) Order() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		for _, e := range g.adjacentcyList[n] {
			indegree[e.To]++
		}
	}

	order := make([]string, 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := ""
		for _, n := range g.nodes {
			if !done[n] && indegree[n] == 0 {
				next = n
				break
			}
		}
		if next == "" {
			remaining := make([]string, 0)
			for _, n := range g.nodes {
				if !done[n] {
					remaining = append(remaining, n)
				}
			}
			return nil, &GraphCycleError{remaining}
		}
		done[next] = true
		order = append(order, next)
		for _, e := range g.adjacentcyList[next] {
			indegree[e.To]--
		}
	}
	return order, nil
}

// ReverseOrder returns the sizing order, loads first.
func (g Graph) ReverseOrder() ([]string, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
