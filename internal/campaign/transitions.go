package campaign

import "github.com/jthadison/bmad4-wyck-vol-sub011/models"

// Phase transition legality. The table is asymmetric by design:
//
//   - forward single steps A->B->C->D->E are legal
//   - same-phase repetition is legal (repeated tests in B, markup
//     continuation E->E; without the latter live campaigns in E would
//     dead-end)
//   - B->D is a legal skip, covering the schematic variant that never
//     prints a spring
//   - E->A (redistribution after markup) is gated behind configuration
//   - every regression, single or multi step, is illegal
func legalTransition(from, to models.Phase, allowRedistribution bool) bool {
	fi, ti := from.Index(), to.Index()
	if fi < 0 || ti < 0 {
		return false
	}
	switch {
	case ti == fi:
		return true
	case ti == fi+1:
		return true
	case from == models.PhaseB && to == models.PhaseD:
		return true
	case from == models.PhaseE && to == models.PhaseA:
		return allowRedistribution
	}
	return false
}
