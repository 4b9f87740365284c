package mbic3

import (
	"fmt"
	"math/rand"
)

// randSource deterministically shuffles generalization candidates so a
// seeded run is reproducible (spec §5, testable property 9). It wraps
// math/rand.Rand instead of exposing it directly so call sites can't reach
// for Math/rand's package-level (unseeded, non-reproducible) functions by
// habit.
type randSource struct {
	r *rand.Rand
}

func newRandSource(seed int64) *randSource {
	return &randSource{r: rand.New(rand.NewSource(seed))}
}

func (rs *randSource) shuffle(xs []Term) {
	rs.r.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}

// splitEq rewrites every top-level equality literal between non-Bool terms
// into a pair of inequalities (spec §4.6.7, grounded on mbic3.cpp's
// split_eq). An equality is an atomic unit that generalization can only
// keep or drop whole; splitting it into "<=" and ">=" halves lets the
// unsat-core search drop just one direction when only one is actually
// needed to relatively-induct, producing a strictly more general clause
// than treating the equality as indivisible.
func splitEq(env *TermEnv, lits []Term) ([]Term, error) {
	out := make([]Term, 0, len(lits))
	for _, l := range lits {
		if l.Op() != OpEqual {
			out = append(out, l)
			continue
		}
		children := l.Children()
		if len(children) != 2 {
			out = append(out, l)
			continue
		}
		a, b := children[0], children[1]

		switch a.Sort().Kind {
		case SortBitVec:
			le1, err := env.MakeTerm(OpBVUle, a, b)
			if err != nil {
				return nil, err
			}
			le2, err := env.MakeTerm(OpBVUle, b, a)
			if err != nil {
				return nil, err
			}
			out = append(out, le1, le2)
		case SortInt, SortReal:
			le1, err := env.MakeTerm(OpLe, a, b)
			if err != nil {
				return nil, err
			}
			ge1, err := env.MakeTerm(OpGe, a, b)
			if err != nil {
				return nil, err
			}
			out = append(out, le1, ge1)
		default:
			out = append(out, l)
		}
	}
	return out, nil
}

// inductiveGeneralization dispatches to the configured mode (spec §4.6.7).
// Called from block()'s UNSAT branch with solverContext already back to 0.
func (e *Engine) inductiveGeneralization(i int, cube IC3Formula) ([]IC3Formula, error) {
	if !e.opts.InductiveGeneralization {
		clause, err := Negate(e.env, cube)
		if err != nil {
			return nil, err
		}
		return []IC3Formula{clause}, nil
	}

	switch e.opts.IndGenMode {
	case 0:
		return e.generalizeMode0(i, cube)
	case 1:
		return e.generalizeMode1(i, cube)
	case 2:
		return e.generalizeMode2(i, cube)
	default:
		return nil, fmt.Errorf("mbic3: unknown IndGenMode %d", e.opts.IndGenMode)
	}
}

// intersectsInit reports whether the cube formed by conjoining lits has a
// model that also satisfies init (mbic3.cpp's check_intersects_initial).
// generalizeMode0 calls this before accepting any literal drop: a clause is
// only sound to learn if its negation (the shrunk cube) excludes every
// initial state, since every frame — and the invariant finally extracted
// from them — must hold at F_0.
func (e *Engine) intersectsInit(lits []Term) (bool, error) {
	cube, err := conjunction(e.env, lits)
	if err != nil {
		return false, err
	}
	if err := e.pushCtx(); err != nil {
		return false, err
	}
	if err := e.solver.AssertFormula(e.ts.Init()); err != nil {
		e.popCtx()
		return false, wrapSolverErr("assert_init", err)
	}
	if err := e.solver.AssertFormula(cube); err != nil {
		e.popCtx()
		return false, wrapSolverErr("assert_cube", err)
	}
	res, err := e.checkSat()
	if err != nil {
		e.popCtx()
		return false, err
	}
	if err := e.popCtx(); err != nil {
		return false, err
	}
	return res == Sat, nil
}

// fixIfIntersectsInit restores literals from removed back into kept, in
// order, until kept's conjunction no longer intersects init or removed is
// exhausted (mbic3.cpp's fix_if_intersects_initial). The further an unsat
// core shrinks a candidate cube, the more likely it drops a literal that was
// only safe to remove because some *other* literal was still excluding init
// — this is the repair step for that. Literals it restores are reported
// separately so the caller can mark them keep: once a literal is known to be
// load-bearing for init-safety, retrying it in a later round wastes a
// relative-induction query to learn the same thing again.
func (e *Engine) fixIfIntersectsInit(kept, removed []Term) (newKept, restored []Term, err error) {
	intersects, err := e.intersectsInit(kept)
	if err != nil {
		return nil, nil, err
	}
	if !intersects {
		return kept, nil, nil
	}
	for _, r := range removed {
		kept = append(kept, r)
		restored = append(restored, r)
		intersects, err = e.intersectsInit(kept)
		if err != nil {
			return nil, nil, err
		}
		if !intersects {
			break
		}
	}
	return kept, restored, nil
}

// generalizeMode0 shrinks cube's literal set inline, asking the engine's own
// solver for an unsat core rather than delegating to a separate reducer
// (mbic3.cpp's default generalization path). It mirrors mbic3.cpp's
// per-literal drop loop: for each literal a not already in keep, try
// dropping it — first checking the resulting cube doesn't intersect init,
// then relative-inducting F_{i-1} ∧ trans ∧ ¬tmp — and on UNSAT, shrink
// further via the unsat core and repair/re-add literals the repair needs
// (fixIfIntersectsInit) before restarting the scan over the new literal set.
func (e *Engine) generalizeMode0(i int, cube IC3Formula) ([]IC3Formula, error) {
	lits, err := splitEq(e.env, cube.Children)
	if err != nil {
		return nil, err
	}

	if err := e.pushCtx(); err != nil {
		return nil, err
	}
	defer e.popCtx()

	if err := e.assertFrame(i - 1); err != nil {
		return nil, err
	}
	if err := e.solver.AssertFormula(e.ts.Trans()); err != nil {
		return nil, wrapSolverErr("assert_trans", err)
	}

	nextOf := make(map[Term]Term, len(lits))
	for _, l := range lits {
		nl, err := e.ts.Next(l)
		if err != nil {
			return nil, err
		}
		nextOf[l] = nl
	}

	if e.rng != nil {
		lits = append([]Term(nil), lits...)
		e.rng.shuffle(lits)
	}

	keep := make(map[Term]bool, len(lits))

	progress := true
	for iter := 0; progress; iter++ {
		progress = false
		if e.opts.MaxGenIter > 0 && iter >= e.opts.MaxGenIter {
			break
		}

		for idx, a := range lits {
			if keep[a] {
				continue
			}

			tmp := make([]Term, 0, len(lits)-1)
			tmp = append(tmp, lits[:idx]...)
			tmp = append(tmp, lits[idx+1:]...)

			intersects, err := e.intersectsInit(tmp)
			if err != nil {
				return nil, err
			}
			if intersects {
				// Without a the shrunk cube contains an initial state, so its
				// negation could not be a clause of any frame; a is not
				// droppable this round.
				continue
			}

			tmpCube, err := conjunction(e.env, tmp)
			if err != nil {
				return nil, err
			}
			notTmpCube, err := e.env.MakeTerm(OpNot, tmpCube)
			if err != nil {
				return nil, err
			}

			if err := e.pushCtx(); err != nil {
				return nil, err
			}
			if err := e.solver.AssertFormula(notTmpCube); err != nil {
				e.popCtx()
				return nil, wrapSolverErr("assert_not_tmp", err)
			}

			assumps := make([]Term, len(tmp))
			for j, l := range tmp {
				assumps[j] = nextOf[l]
			}

			res, err := e.checkSatAssuming(assumps)
			if err != nil {
				e.popCtx()
				return nil, err
			}
			if res == Sat {
				// Relative induction fails without a: a must be kept.
				if err := e.popCtx(); err != nil {
					return nil, err
				}
				continue
			}
			if res != Unsat {
				e.popCtx()
				panicInvariant("mode-0 generalization: relative induction query neither SAT nor UNSAT")
			}

			core, err := e.solver.GetUnsatCore()
			if err != nil {
				e.popCtx()
				return nil, wrapSolverErr("get_unsat_core", err)
			}
			if err := e.popCtx(); err != nil {
				return nil, err
			}

			newTmp := make([]Term, 0, len(tmp))
			var removed []Term
			for _, l := range tmp {
				if _, ok := core[nextOf[l]]; ok {
					newTmp = append(newTmp, l)
				} else {
					removed = append(removed, l)
				}
			}

			newTmp, restored, err := e.fixIfIntersectsInit(newTmp, removed)
			if err != nil {
				return nil, err
			}
			for _, r := range restored {
				keep[r] = true
			}

			lits = newTmp
			progress = true
			break
		}
	}

	keptCube, err := Conjunction(e.env, lits)
	if err != nil {
		return nil, err
	}
	clause, err := Negate(e.env, keptCube)
	if err != nil {
		return nil, err
	}
	return []IC3Formula{clause}, nil
}

// generalizeMode1 shrinks the cube's literal set through the standalone
// UnsatCoreReducer rather than manipulating the solver inline; unlike mode
// 0 it performs no init-intersection check and keeps no never-drop set,
// matching the reference engine's "external reducer" configuration (spec
// §4.6.7): the reducer owns its own push/pop scope, so it can be swapped
// for a solver-specific implementation without the Engine's relative-
// induction call sites changing.
func (e *Engine) generalizeMode1(i int, cube IC3Formula) ([]IC3Formula, error) {
	lits, err := splitEq(e.env, cube.Children)
	if err != nil {
		return nil, err
	}

	framePart, err := conjunction(e.env, e.frameAssumptions(i-1))
	if err != nil {
		return nil, err
	}
	base, err := e.env.MakeTerm(OpAnd, framePart, e.ts.Trans())
	if err != nil {
		return nil, err
	}
	notCube, err := e.env.MakeTerm(OpNot, cube.Term)
	if err != nil {
		return nil, err
	}
	base, err = e.env.MakeTerm(OpAnd, base, notCube)
	if err != nil {
		return nil, err
	}

	assumps := make([]Term, len(lits))
	nextToLit := make(map[Term]Term, len(lits))
	for idx, l := range lits {
		nl, err := e.ts.Next(l)
		if err != nil {
			return nil, err
		}
		assumps[idx] = nl
		nextToLit[nl] = l
	}

	kept, _, err := e.reducer.ReduceAssumpUnsatcore(base, assumps, e.opts.MaxGenIter, e.opts.RandomSeed)
	if err != nil {
		return nil, err
	}

	keepLits := make([]Term, 0, len(kept))
	for _, a := range kept {
		keepLits = append(keepLits, nextToLit[a])
	}

	keptCube, err := Conjunction(e.env, keepLits)
	if err != nil {
		return nil, err
	}
	clause, err := Negate(e.env, keptCube)
	if err != nil {
		return nil, err
	}
	return []IC3Formula{clause}, nil
}

// generalizeMode2 derives the learned clause from a Craig interpolant
// rather than shrinking cube's literal set (spec §4.6.7, §4.8). With
// A := F_{i-1} ∧ trans ∧ ¬cube and B := cube' (the same two halves whose
// conjunction block() already proved UNSAT), the interpolant is expressible
// purely over the vocabulary A and B share — the next-state variables —
// and translating it back to current-state variables yields a clause
// implied by F_{i-1} ∧ ¬cube that excludes cube (McMillan-style
// interpolation-based invariant strengthening). The translated interpolant
// is conjunctively partitioned and each conjunct becomes one learned clause.
func (e *Engine) generalizeMode2(i int, cube IC3Formula) ([]IC3Formula, error) {
	if e.interpSolver == nil {
		return nil, fmt.Errorf("mbic3: IndGenMode 2 requires an interpolating solver (WithInterpolatingSolver)")
	}

	// The frame labels have meaning only in e.solver, so F_{i-1} is spelled
	// out: init for frame 0, otherwise the clauses stored at levels ≥ i-1.
	var framePart Term
	var err error
	if i-1 <= 0 {
		framePart = e.ts.Init()
	} else if framePart, err = e.frames.FrameTerm(e.env, i-1); err != nil {
		return nil, err
	}
	notCube, err := e.env.MakeTerm(OpNot, cube.Term)
	if err != nil {
		return nil, err
	}
	a, err := e.env.MakeTerm(OpAnd, framePart, e.ts.Trans())
	if err != nil {
		return nil, err
	}
	a, err = e.env.MakeTerm(OpAnd, a, notCube)
	if err != nil {
		return nil, err
	}

	b, err := e.ts.Next(cube.Term)
	if err != nil {
		return nil, err
	}

	interpA, err := e.toInterp.Transfer(a)
	if err != nil {
		return nil, err
	}
	interpB, err := e.toInterp.Transfer(b)
	if err != nil {
		return nil, err
	}

	itp, err := e.interpSolver.GetInterpolant(interpA, interpB)
	if err != nil {
		return nil, wrapSolverErr("get_interpolant", err)
	}

	nextClause, err := e.toSolver.Transfer(itp)
	if err != nil {
		return nil, err
	}
	clauseTerm, err := e.ts.Curr(nextClause)
	if err != nil {
		return nil, err
	}

	var conjuncts []Term
	e.env.ConjunctivePartition(clauseTerm, &conjuncts, true)
	lemmas := make([]IC3Formula, 0, len(conjuncts))
	for _, c := range conjuncts {
		lemmas = append(lemmas, IC3Formula{Term: c, Children: []Term{c}, Disjunction: true})
	}
	return lemmas, nil
}
