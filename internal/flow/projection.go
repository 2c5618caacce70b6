package flow

import (
	"fmt"
	"sort"

	"github.com/formlio/surveybot-backend/internal/model"
)

// Branch is one display-ready row of the flow overview: a condition label
// ("Yes", "3 stars", "All answers", or an expression) and a target label
// ("Q3" or "End Survey").
type Branch struct {
	Condition string `json:"condition"`
	Target    string `json:"target"`
}

// QuestionFlow is the resolved flow of a single question, in display form.
type QuestionFlow struct {
	QuestionID int64    `json:"question_id"`
	Label      string   `json:"label"`
	Prompt     string   `json:"prompt"`
	Branches   []Branch `json:"branches"`
}

const endLabel = "End Survey"

// BuildOverview projects the resolved flow graph into a human-inspectable
// structure for the review surface. It evaluates the same fallback chain as
// ResolveNext symbolically per question, so the overview can never disagree
// with runtime resolution.
func BuildOverview(questions []model.Question) []QuestionFlow {
	ordered := make([]model.Question, len(questions))
	copy(ordered, questions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].OrderIndex < ordered[j].OrderIndex })

	labels := make(map[int64]string, len(ordered))
	for i := range ordered {
		labels[ordered[i].ID] = fmt.Sprintf("Q%d", ordered[i].OrderIndex+1)
	}

	overview := make([]QuestionFlow, 0, len(ordered))
	for i := range ordered {
		q := &ordered[i]
		qf := QuestionFlow{
			QuestionID: q.ID,
			Label:      labels[q.ID],
			Prompt:     q.Prompt,
			Branches:   []Branch{},
		}

		targetLabel := func(target *int64) string {
			if target == nil {
				return endLabel
			}
			if label, ok := labels[*target]; ok {
				return label
			}
			return fmt.Sprintf("#%d", *target)
		}

		for _, cond := range q.Flow.Conditionals {
			qf.Branches = append(qf.Branches, Branch{
				Condition: cond.Expr,
				Target:    targetLabel(cond.Next),
			})
		}

		coversAll := true
		if q.Type.SupportsOptionBranching() {
			keys := len(q.Options)
			if q.Type == model.QuestionTypeRating {
				keys = model.RatingMax
			}
			for k := 0; k < keys; k++ {
				target, ok := q.Flow.OptionNext[k]
				if !ok {
					coversAll = false
					continue
				}
				qf.Branches = append(qf.Branches, Branch{
					Condition: keyLabel(q, k),
					Target:    targetLabel(target),
				})
			}
			if keys == 0 {
				coversAll = false
			}
		} else {
			coversAll = false
		}

		// The fallback row only exists if some answer can actually reach it.
		if !coversAll {
			qf.Branches = append(qf.Branches, Branch{
				Condition: "All answers",
				Target:    fallbackLabel(ordered, q, labels),
			})
		}

		overview = append(overview, qf)
	}
	return overview
}

func keyLabel(q *model.Question, key int) string {
	if q.Type == model.QuestionTypeRating {
		if key == 0 {
			return "1 star"
		}
		return fmt.Sprintf("%d stars", key+1)
	}
	if key < len(q.Options) {
		return q.Options[key]
	}
	return fmt.Sprintf("Option %d", key+1)
}

func fallbackLabel(ordered []model.Question, q *model.Question, labels map[int64]string) string {
	if q.Flow.DefaultNext.Defined {
		if q.Flow.DefaultNext.Target == nil {
			return endLabel
		}
		if label, ok := labels[*q.Flow.DefaultNext.Target]; ok {
			return label
		}
		return fmt.Sprintf("#%d", *q.Flow.DefaultNext.Target)
	}
	if next := successorOf(ordered, q.OrderIndex); next != nil {
		return labels[next.ID]
	}
	return endLabel
}
