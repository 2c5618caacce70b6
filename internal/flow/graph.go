package flow

import (
	"sort"

	"github.com/formlio/surveybot-backend/internal/model"
)

// endNode is the synthetic terminal node in the flow graph. Question ids are
// positive bigserials, so -1 can never collide.
const endNode int64 = -1

// Report is the structured result of validating a survey's flow graph.
// Cycles are hard failures (the survey cannot guarantee completion);
// orphans are warnings, since a question may still be reachable through
// answer paths not modeled symbolically.
type Report struct {
	Valid             bool      `json:"valid"`
	Cycles            [][]int64 `json:"cycles"`
	OrphanQuestionIDs []int64   `json:"orphan_question_ids"`
}

// ValidateGraph walks the symbolic flow graph — every possible resolved edge
// over all answer values — and checks that the survey is answerable to
// completion. A cycle is fatal only when no question inside it has any path
// to the terminal node; a cycle with an exit is an author's choice, not a
// trap. Invoked at publish time, never during survey-taking.
func ValidateGraph(questions []model.Question) *Report {
	report := &Report{Valid: true, Cycles: [][]int64{}, OrphanQuestionIDs: []int64{}}
	if len(questions) == 0 {
		return report
	}

	ordered := make([]model.Question, len(questions))
	copy(ordered, questions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].OrderIndex < ordered[j].OrderIndex })

	adj := buildAdjacency(ordered)

	report.OrphanQuestionIDs = findOrphans(ordered, adj)
	canExit := reachesEnd(ordered, adj)
	report.Cycles = findTrappedCycles(ordered, adj, canExit)
	report.Valid = len(report.Cycles) == 0

	return report
}

// buildAdjacency enumerates every resolved edge per question. For
// single-choice and rating questions there is one edge per branch key —
// explicit target or terminal — and unconfigured keys contribute the default
// fallback edge. Text and multiple-choice questions contribute a single
// fallback edge. Expression conditionals add their targets on top.
func buildAdjacency(ordered []model.Question) map[int64][]int64 {
	adj := make(map[int64][]int64, len(ordered))

	for i := range ordered {
		q := &ordered[i]
		seen := make(map[int64]bool)
		var edges []int64
		add := func(target int64) {
			if !seen[target] {
				seen[target] = true
				edges = append(edges, target)
			}
		}

		for _, cond := range q.Flow.Conditionals {
			add(refOrEnd(cond.Next))
		}

		fallback := fallbackEdge(ordered, q)

		if q.Type.SupportsOptionBranching() {
			keys := len(q.Options)
			if q.Type == model.QuestionTypeRating {
				keys = model.RatingMax
			}
			hasUnconfigured := false
			for k := 0; k < keys; k++ {
				if target, ok := q.Flow.OptionNext[k]; ok {
					add(refOrEnd(target))
				} else {
					hasUnconfigured = true
				}
			}
			if hasUnconfigured || keys == 0 {
				add(fallback)
			}
		} else {
			add(fallback)
		}

		adj[q.ID] = edges
	}

	return adj
}

// fallbackEdge resolves the default/sequential tail of the chain
// symbolically: explicit default target, end sentinel, or the next question
// in order.
func fallbackEdge(ordered []model.Question, q *model.Question) int64 {
	if q.Flow.DefaultNext.Defined {
		return refOrEnd(q.Flow.DefaultNext.Target)
	}
	if next := successorOf(ordered, q.OrderIndex); next != nil {
		return next.ID
	}
	return endNode
}

func refOrEnd(target *int64) int64 {
	if target == nil {
		return endNode
	}
	return *target
}

// findOrphans traverses from the first question and reports every question
// never reached.
func findOrphans(ordered []model.Question, adj map[int64][]int64) []int64 {
	visited := map[int64]bool{endNode: true}
	queue := []int64{ordered[0].ID}
	visited[ordered[0].ID] = true
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range adj[node] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	orphans := []int64{}
	for i := range ordered {
		if !visited[ordered[i].ID] {
			orphans = append(orphans, ordered[i].ID)
		}
	}
	return orphans
}

// reachesEnd computes, via reverse traversal from the terminal node, the set
// of questions with at least one answer path to survey completion.
func reachesEnd(ordered []model.Question, adj map[int64][]int64) map[int64]bool {
	reverse := make(map[int64][]int64)
	for from, edges := range adj {
		for _, to := range edges {
			reverse[to] = append(reverse[to], from)
		}
	}

	canExit := make(map[int64]bool, len(ordered))
	queue := []int64{endNode}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, prev := range reverse[node] {
			if !canExit[prev] {
				canExit[prev] = true
				queue = append(queue, prev)
			}
		}
	}
	return canExit
}

// findTrappedCycles runs DFS with a recursion stack over the subgraph of
// questions that cannot reach the terminal node. Every cycle found there is
// inescapable and therefore a hard validation failure.
func findTrappedCycles(ordered []model.Question, adj map[int64][]int64, canExit map[int64]bool) [][]int64 {
	cycles := [][]int64{}
	visited := make(map[int64]bool)
	onStack := make(map[int64]bool)
	var stack []int64

	var visit func(node int64)
	visit = func(node int64) {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		for _, next := range adj[node] {
			if next == endNode || canExit[next] {
				continue
			}
			if onStack[next] {
				cycles = append(cycles, extractCycle(stack, next))
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		stack = stack[:len(stack)-1]
		onStack[node] = false
	}

	for i := range ordered {
		id := ordered[i].ID
		if !visited[id] && !canExit[id] {
			visit(id)
		}
	}
	return cycles
}

// extractCycle copies the stack segment from the back-edge target onward.
func extractCycle(stack []int64, from int64) []int64 {
	for i, node := range stack {
		if node == from {
			cycle := make([]int64, len(stack)-i)
			copy(cycle, stack[i:])
			return cycle
		}
	}
	return nil
}
