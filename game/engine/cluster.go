package engine

// collectCluster walks the same-colored cubes 4-connected to the cube at start.
// Obstacles directly adjacent to a member are returned once each; they do not extend the walk.
// visited is indexed like cells and is updated in place.
func (b *Board) collectCluster(start int, visited []bool) (members, obstacles []*Tile) {
	origin := b.cells[start]
	if origin == nil || origin.Kind != KindCube {
		return nil, nil
	}

	seenObstacle := make(map[int]bool)
	stack := []int{start}
	visited[start] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		members = append(members, b.cells[i])

		p := b.positionOf(i)
		for _, d := range neighborOffsets {
			n := p.Add(d)
			if !b.inBounds(n) {
				continue
			}
			j := b.index(n)
			other := b.cells[j]
			if other == nil {
				continue
			}
			if other.IsObstacle() {
				if !seenObstacle[j] {
					seenObstacle[j] = true
					obstacles = append(obstacles, other)
				}
				continue
			}
			if visited[j] || other.Kind != KindCube || other.Color != origin.Color {
				continue
			}
			visited[j] = true
			stack = append(stack, j)
		}
	}
	return members, obstacles
}

// recomputeClusters refreshes the cluster state of every cube on the board
func (b *Board) recomputeClusters() {
	visited := make([]bool, len(b.cells))
	for i, t := range b.cells {
		if t == nil || t.Kind != KindCube || visited[i] {
			continue
		}
		members, _ := b.collectCluster(i, visited)
		state := b.tuning.clusterStateFor(len(members))
		for _, m := range members {
			m.setCluster(state)
		}
	}
}
