package invoice

import (
	"sync"

	"github.com/google/cel-go/cel"

	"navgate/internal/core/apperror"
)

// GuardEvaluator evaluates per-company CEL guard expressions against an
// invoice. Compiled programs are cached by expression text, so repeated
// checks with the same rule pay compilation once.
type GuardEvaluator struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewGuardEvaluator builds the evaluator with the invoice variable set.
func NewGuardEvaluator() (*GuardEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("number", cel.StringType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("net", cel.DoubleType),
		cel.Variable("vat", cel.DoubleType),
		cel.Variable("gross", cel.DoubleType),
		cel.Variable("gross_huf", cel.DoubleType),
		cel.Variable("lines", cel.IntType),
		cel.Variable("modification", cel.BoolType),
		cel.Variable("partner_country", cel.StringType),
	)
	if err != nil {
		return nil, err
	}
	return &GuardEvaluator{env: env, cache: map[string]cel.Program{}}, nil
}

// Evaluate runs the expression against inv. Returns false when the rule
// blocks the invoice. A rule that does not produce a boolean is a
// configuration error.
func (g *GuardEvaluator) Evaluate(expr string, inv *Invoice, currencyCode, partnerCountry string) (bool, error) {
	prg, err := g.program(expr)
	if err != nil {
		return false, err
	}

	grossHUF, _ := inv.GrossAmountHUF.Float64()
	net, _ := inv.NetAmount.Float64()
	vat, _ := inv.VATAmount.Float64()
	gross, _ := inv.GrossAmount.Float64()

	out, _, err := prg.Eval(map[string]any{
		"number":          inv.Number,
		"currency":        currencyCode,
		"net":             net,
		"vat":             vat,
		"gross":           gross,
		"gross_huf":       grossHUF,
		"lines":           int64(len(inv.Lines)),
		"modification":    inv.IsModification(),
		"partner_country": partnerCountry,
	})
	if err != nil {
		return false, apperror.NewConfiguration("guard rule evaluation failed").
			WithDetail("rule", expr).
			WithCause(err)
	}

	pass, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewConfiguration("guard rule must evaluate to a boolean").
			WithDetail("rule", expr)
	}
	return pass, nil
}

func (g *GuardEvaluator) program(expr string) (cel.Program, error) {
	g.mu.RLock()
	prg, ok := g.cache[expr]
	g.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := g.env.Compile(expr)
	if iss.Err() != nil {
		return nil, apperror.NewConfiguration("invalid guard rule").
			WithDetail("rule", expr).
			WithCause(iss.Err())
	}
	prg, err := g.env.Program(ast)
	if err != nil {
		return nil, apperror.NewConfiguration("invalid guard rule").
			WithDetail("rule", expr).
			WithCause(err)
	}

	g.mu.Lock()
	g.cache[expr] = prg
	g.mu.Unlock()
	return prg, nil
}
