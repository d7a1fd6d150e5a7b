package trends

import "github.com/newsloom/newsloom/pkg/mathutil"

// dbscan clusters unit-normalized vectors with the cosine metric.
// Returned labels are 0..k-1 per cluster, -1 for noise.
func dbscan(vectors [][]float32, eps float64, minSamples int) []int {
	const (
		unvisited = -2
		noise     = -1
	)

	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := regionQuery(vectors, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = noise
			continue
		}

		labels[i] = cluster

		// Expand the cluster over the density-reachable frontier.
		queue := append([]int(nil), neighbors...)
		for head := 0; head < len(queue); head++ {
			j := queue[head]
			if labels[j] == noise {
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster

			jNeighbors := regionQuery(vectors, j, eps)
			if len(jNeighbors) >= minSamples {
				queue = append(queue, jNeighbors...)
			}
		}
		cluster++
	}
	return labels
}

// regionQuery returns the indices within eps cosine distance of point
// i, including i itself.
func regionQuery(vectors [][]float32, i int, eps float64) []int {
	var neighbors []int
	for j := range vectors {
		if cosineDistance(vectors[i], vectors[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func cosineDistance(a, b []float32) float64 {
	return 1 - mathutil.CosineSimilarity(a, b)
}
