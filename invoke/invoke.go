package invoke

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/introspect"
	"github.com/wippyai/opcall/refs"
	"github.com/wippyai/opcall/resource"
	"github.com/wippyai/opcall/unit"
	"github.com/wippyai/opcall/value"
)

// Invoker calls engine operations by name.
type Invoker struct {
	eng       opcall.Engine
	cache     *introspect.Cache
	arena     *resource.Arena
	observers []Observer
	obsMu     sync.RWMutex
}

// New creates an invoker over eng. Output units are created in arena, which
// should be the arena the caller's memory units live in.
func New(eng opcall.Engine, arena *resource.Arena) *Invoker {
	return &Invoker{
		eng:   eng,
		cache: introspect.For(eng),
		arena: arena,
	}
}

// Engine returns the engine calls are made on.
func (inv *Invoker) Engine() opcall.Engine {
	return inv.eng
}

// Descriptors returns the descriptor cache the invoker uses.
func (inv *Invoker) Descriptors() *introspect.Cache {
	return inv.cache
}

// Subscribe registers an observer for finished calls.
func (inv *Invoker) Subscribe(o Observer) {
	inv.obsMu.Lock()
	inv.observers = append(inv.observers, o)
	inv.obsMu.Unlock()
}

// Call invokes the operation name. args are the required inputs in order;
// named holds optional inputs and the optional outputs to read back;
// options is the engine's option string, applied before any argument.
func (inv *Invoker) Call(ctx context.Context, name string, args []value.Value, named map[string]value.Value, options string) (*Result, error) {
	start := time.Now()
	Logger().Debug("call",
		zap.String("operation", name),
		zap.Int("args", len(args)),
		zap.Int("named", len(named)),
		zap.String("options", options))

	res, err := inv.call(ctx, name, args, named, options)

	rec := Record{
		ID:        newRecordID(),
		Operation: name,
		Options:   options,
		Started:   start,
		Duration:  time.Since(start),
		Inputs:    len(args),
		Named:     len(named),
	}
	if err != nil {
		rec.Error = err.Error()
		Logger().Debug("call failed", zap.String("operation", name), zap.Error(err))
	} else {
		rec.Shape = res.Shape()
		rec.Advisories = len(res.Advisories)
		Logger().Debug("call done",
			zap.String("operation", name),
			zap.Stringer("shape", rec.Shape),
			zap.Duration("duration", rec.Duration))
	}
	inv.notify(rec)

	return res, err
}

// CallAny is Call with loosely typed arguments, converted with value.From.
func (inv *Invoker) CallAny(ctx context.Context, name string, args []any, named map[string]any, options string) (*Result, error) {
	vargs := make([]value.Value, len(args))
	for i, a := range args {
		v, err := value.From(a)
		if err != nil {
			return nil, withContext(err, name, "")
		}
		vargs[i] = v
	}
	var vnamed map[string]value.Value
	if len(named) > 0 {
		vnamed = make(map[string]value.Value, len(named))
		for k, a := range named {
			v, err := value.From(a)
			if err != nil {
				return nil, withContext(err, name, k)
			}
			vnamed[k] = v
		}
	}
	return inv.Call(ctx, name, vargs, vnamed, options)
}

func (inv *Invoker) call(ctx context.Context, name string, args []value.Value, named map[string]value.Value, options string) (*Result, error) {
	d, err := inv.cache.Describe(name)
	if err != nil {
		return nil, err
	}

	if len(args) != len(d.RequiredInput) {
		return nil, errors.ArityMismatch(name, len(d.RequiredInput), len(args))
	}

	keys := make([]string, 0, len(named))
	for k := range named {
		if !d.IsOptionalInput(k) && !d.IsOptionalOutput(k) {
			return nil, errors.UnsupportedOption(name, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	op, err := inv.eng.NewOperation(name)
	if err != nil {
		return nil, errors.UnknownOperation(name, err)
	}

	// options go first so typed arguments cannot be overridden by them
	if options != "" {
		if err := op.SetOptions(options); err != nil {
			return nil, errors.InvalidOptions(name, options, err)
		}
	}

	res := &Result{}
	if d.Deprecated() {
		res.Advisories = append(res.Advisories, inv.advise(name, ""))
	}

	match := refs.MatchUnit(args)
	acc := unit.NewRefs()

	for i, argName := range d.RequiredInput {
		if err := inv.set(op, d, d.Details[argName], args[i], match, acc); err != nil {
			return nil, err
		}
	}

	var wanted []string
	for _, k := range keys {
		det := d.Details[k]
		if det.Flags.Has(opcall.ArgDeprecated) {
			res.Advisories = append(res.Advisories, inv.advise(name, k))
		}
		if d.IsOptionalOutput(k) {
			wanted = append(wanted, k)
			continue
		}
		if err := inv.set(op, d, det, named[k], match, acc); err != nil {
			return nil, err
		}
	}

	built, err := inv.eng.Build(ctx, op)
	if err != nil {
		return nil, errors.BuildFailed(name, err)
	}
	defer built.UnrefOutputs()

	wrap := func(img opcall.Image) *unit.Unit {
		return unit.New(img, inv.arena)
	}

	for _, outName := range d.RequiredOutput {
		v, err := inv.get(built, d, d.Details[outName], wrap)
		if err != nil {
			closeUnits(res.Outputs...)
			return nil, err
		}
		refs.Propagate(v, acc)
		res.Outputs = append(res.Outputs, v)
	}

	for _, outName := range wanted {
		v, err := inv.get(built, d, d.Details[outName], wrap)
		if err != nil {
			_ = res.Close()
			return nil, err
		}
		refs.Propagate(v, acc)
		if res.Optional == nil {
			res.Optional = make(map[string]value.Value, len(wanted))
		}
		res.Optional[outName] = v
	}

	return res, nil
}

// set collects the references of v, promotes constants, copies modified
// units and hands the marshaled value to the operation.
func (inv *Invoker) set(op opcall.Operation, d *introspect.Descriptor, det introspect.Details, v value.Value, match *unit.Unit, acc unit.Refs) error {
	if err := inv.checkUnits(v); err != nil {
		return withContext(err, d.Name, det.Name)
	}
	refs.CollectInto(acc, v)

	v, err := inv.promote(v, det.Type, match)
	if err != nil {
		return withContext(err, d.Name, det.Name)
	}

	if det.Flags.Has(opcall.ArgModify) {
		if v, err = inv.copyUnit(v); err != nil {
			return withContext(err, d.Name, det.Name)
		}
	}

	nat, err := value.ToNative(v, opcall.ArgSpec{
		Name:  det.Name,
		Type:  det.Type,
		Enum:  det.Enum,
		Flags: det.Flags,
	})
	if err != nil {
		return withContext(err, d.Name, det.Name)
	}

	if err := op.Set(det.NativeName, nat); err != nil {
		return errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Operation(d.Name).
			Argument(det.Name).
			Detail("unable to set argument").
			Cause(err).
			Build()
	}
	return nil
}

// checkUnits rejects closed units and units pinned in another arena. Handles
// are only meaningful in the arena that issued them.
func (inv *Invoker) checkUnits(v value.Value) error {
	var err error
	value.EachUnit(v, func(u *unit.Unit) {
		switch {
		case err != nil:
		case u.Closed():
			err = errors.InvalidInput(errors.PhaseInvoke, "unit is closed")
		case u.Arena() != nil && u.Arena() != inv.arena:
			err = errors.InvalidInput(errors.PhaseInvoke, "unit belongs to another arena")
		}
	})
	return err
}

func (inv *Invoker) get(op opcall.Operation, d *introspect.Descriptor, det introspect.Details, wrap func(opcall.Image) *unit.Unit) (value.Value, error) {
	nat, err := op.Get(det.NativeName)
	if err != nil {
		return value.Unset, errors.New(errors.PhaseInvoke, errors.KindNotFound).
			Operation(d.Name).
			Argument(det.Name).
			Detail("unable to read output").
			Cause(err).
			Build()
	}
	v, err := value.FromNative(nat, opcall.ArgSpec{Name: det.Name, Type: det.Type, Enum: det.Enum, Flags: det.Flags}, wrap)
	if err != nil {
		return value.Unset, withContext(err, d.Name, det.Name)
	}
	return v, nil
}

// copyUnit replaces a unit with an unshared memory copy, so the operation
// can write to it without touching the caller's buffer.
func (inv *Invoker) copyUnit(v value.Value) (value.Value, error) {
	u, ok := v.AsUnit()
	if !ok {
		return v, nil
	}
	img, err := inv.eng.CopyMemory(u.Native())
	if err != nil {
		return value.Unset, errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "copy to memory")
	}
	return value.Unit(unit.New(img, nil)), nil
}

func (inv *Invoker) advise(name, arg string) *errors.Error {
	adv := errors.DeprecatedUsage(name, arg)
	Logger().Warn(adv.Detail, zap.String("operation", name), zap.String("argument", arg))
	return adv
}

func (inv *Invoker) notify(rec Record) {
	inv.obsMu.RLock()
	observers := inv.observers
	inv.obsMu.RUnlock()

	for _, o := range observers {
		o.OnCall(rec)
	}
}

// withContext fills in the operation and argument of a structured error.
func withContext(err error, name, arg string) error {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err
	}
	c := *e
	if c.Operation == "" {
		c.Operation = name
	}
	if c.Argument == "" {
		c.Argument = arg
	}
	return &c
}

func closeUnits(vals ...value.Value) {
	for _, v := range vals {
		value.EachUnit(v, func(u *unit.Unit) { _ = u.Close() })
	}
}
