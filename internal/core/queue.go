package core

import (
	"container/heap"
)

// requestQueue orders requests by descending priority, then insertion order
type requestQueue []*AnalysisRequest

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *requestQueue) Push(x interface{}) {
	*q = append(*q, x.(*AnalysisRequest))
}

func (q *requestQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

func (q *requestQueue) push(req *AnalysisRequest) {
	heap.Push(q, req)
}

func (q *requestQueue) pop() *AnalysisRequest {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*AnalysisRequest)
}
