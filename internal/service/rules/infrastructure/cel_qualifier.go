// internal/service/rules/infrastructure/cel_qualifier.go
package infrastructure

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELQualifier 用 CEL 表达式评估一个候选 deal 是否满足规则的过滤条件。
// 表达式以 `deal` 为根变量，例如：
//
//	deal.score >= 7.0 && deal.discount >= 20
//
// 编译结果按表达式缓存，规则量大时避免重复编译。
type CELQualifier struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCELQualifier 创建评估器。
func NewCELQualifier() (*CELQualifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("deal", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel env: %w", err)
	}
	return &CELQualifier{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 执行表达式。返回值为表达式结果；任何编译或求值错误都原样返回，
// 是否"放行"由应用层决定（过滤器是建议性的，出错时 fail-open）。
func (q *CELQualifier) Evaluate(expr string, facts map[string]interface{}) (bool, error) {
	prg, err := q.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{"deal": facts})
	if err != nil {
		return false, fmt.Errorf("cel eval failed: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter expression did not produce a bool: %T", out.Value())
	}
	return result, nil
}

func (q *CELQualifier) program(expr string) (cel.Program, error) {
	q.mu.RLock()
	prg, ok := q.programs[expr]
	q.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := q.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("cel compile failed: %w", iss.Err())
	}
	prg, err := q.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program failed: %w", err)
	}

	q.mu.Lock()
	q.programs[expr] = prg
	q.mu.Unlock()
	return prg, nil
}
