package tracker

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/filter"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/paging"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/route"
)

// HandleFragment reacts to a location fragment change.
func (e *Engine) HandleFragment(ctx context.Context, fragment string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.state.Fragment = fragment
	e.navigate(ctx, fragment, false)
}

// SelectType switches the bill-type view. Selecting the current type while
// the main view is showing does nothing.
func (e *Engine) SelectType(ctx context.Context, typeKey string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	target := route.Parse(typeKey, e.opts.Types)
	if target.Kind != route.KindType {
		target.Type = bill.AllTypes
	}
	e.transition(ctx, target.Type, false)
}

// JumpToBill shows the page holding bill id in its own type view.
func (e *Engine) JumpToBill(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	return e.jump(ctx, id)
}

func (e *Engine) navigate(ctx context.Context, fragment string, force bool) {
	if !route.Recognized(fragment, e.opts.Types) {
		e.log.Warn("unrecognized fragment", zap.String("fragment", fragment))
	}
	target := route.Parse(fragment, e.opts.Types)
	if target.Kind == route.KindBill {
		if err := e.jump(ctx, target.BillID); err != nil && force {
			// the first paint still has to happen
			e.transition(ctx, e.state.BillType, true)
		}
		return
	}
	e.transition(ctx, target.Type, force)
}

// transition applies a type view change. Callers hold mu.
func (e *Engine) transition(ctx context.Context, typeKey string, force bool) {
	if !force && typeKey == e.state.BillType && e.state.Mode == ModeMain {
		return
	}

	e.state.BillType = typeKey
	e.state.Mode = ModeMain
	e.state.Page = 1
	e.state.Highlight = ""
	if typeKey != bill.AllTypes {
		e.state.Filters.Type = ""
	}
	e.writeFragment(route.TypeFragment(typeKey))
	e.save(ctx)
	e.render()
}

// jump resolves a bill and lands on it. Callers hold mu.
func (e *Engine) jump(ctx context.Context, id string) error {
	b, ok := e.state.Collection.Get(id)
	if !ok {
		e.notify(NoticeNotFound, id, "Bill %s not found", id)
		e.log.Info("jump to missing bill", zap.String("bill", id))
		return ErrBillNotFound
	}

	typeKey := b.Type()
	if !e.opts.Types.Recognized(typeKey) {
		e.log.Warn("unrecognized bill type", zap.String("bill", id), zap.String("type", typeKey))
		typeKey = bill.AllTypes
	} else if info, ok := e.opts.Types.Lookup(typeKey); ok {
		typeKey = info.Key
	}

	e.state.BillType = typeKey
	e.state.Filters = filter.NewState()
	e.cancelSearch()
	e.state.Mode = ModeMain

	visible := e.state.Visible()
	pos := slices.IndexFunc(visible, func(v bill.Bill) bool { return v.ID == id })
	e.state.Page = paging.For(pos, e.state.PageSize)
	e.state.Highlight = id

	e.writeFragment(route.BillFragment(id))
	e.save(ctx)
	e.render()
	return nil
}

// writeFragment records a programmatic fragment write, skipping writes that
// would not change the location.
func (e *Engine) writeFragment(fragment string) {
	if e.state.Fragment == fragment {
		return
	}
	e.state.Fragment = fragment
	e.fragmentWrites++
}

// FragmentWrites counts programmatic fragment changes.
func (e *Engine) FragmentWrites() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fragmentWrites
}
