// Package celexpr переводит текст CEL-выражений в синтаксическое дерево и обратно.
package celexpr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ErrEmptyExpression возвращается, когда для обратного преобразования передано пустое дерево.
var ErrEmptyExpression = errors.New("expression tree is empty")

// SyntaxError — текст не является корректным CEL-выражением.
type SyntaxError struct {
	Expression string
	Message    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("failed to parse expression %q: %s", e.Expression, e.Message)
}

// DeparseError — дерево не удалось превратить обратно в текст.
type DeparseError struct {
	Err error
}

func (e *DeparseError) Error() string {
	return fmt.Sprintf("failed to deparse expression: %v", e.Err)
}

func (e *DeparseError) Unwrap() error {
	return e.Err
}

// Options задаёт ограничения парсера. Нулевые значения оставляют ограничения библиотеки.
type Options struct {
	ExpressionSizeLimit int
	RecursionLimit      int
}

// Parser разбирает и собирает выражения. Безопасен для одновременного использования.
type Parser struct {
	env  *cel.Env
	opts Options
}

func NewParser(opts Options) (*Parser, error) {
	var envOpts []cel.EnvOption
	if opts.ExpressionSizeLimit > 0 {
		envOpts = append(envOpts, cel.ParserExpressionSizeLimit(opts.ExpressionSizeLimit))
	}
	if opts.RecursionLimit > 0 {
		envOpts = append(envOpts, cel.ParserRecursionLimit(opts.RecursionLimit))
	}

	env, err := cel.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Parser{env: env, opts: opts}, nil
}

// Options возвращает ограничения, с которыми создан парсер.
func (p *Parser) Options() Options {
	return p.opts
}

// Parse строит синтаксическое дерево без проверки типов.
func (p *Parser) Parse(text string) (*exprpb.Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &SyntaxError{Expression: text, Message: "expression is empty"}
	}

	ast, issues := p.env.Parse(text)
	if issues != nil && issues.Err() != nil {
		return nil, &SyntaxError{Expression: text, Message: issues.Err().Error()}
	}

	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to convert AST of %q: %w", text, err)
	}

	return parsed.GetExpr(), nil
}

// Deparse возвращает текст выражения.
//
// Деревья приходят без source info, поэтому развёрнутые макросы-comprehension
// (all, exists, exists_one, map, filter) обратно не собираются: для них Deparse
// возвращает *DeparseError, и Deparse(Parse(s)) для таких s не выполняется.
// Макрос has переживает сборку, так как разворачивается в select с test_only.
func (p *Parser) Deparse(expr *exprpb.Expr) (string, error) {
	if expr == nil || expr.GetExprKind() == nil {
		return "", ErrEmptyExpression
	}

	ast := cel.ParsedExprToAst(&exprpb.ParsedExpr{Expr: expr})
	if ast == nil {
		return "", &DeparseError{Err: errors.New("unsupported expression tree")}
	}

	text, err := cel.AstToString(ast)
	if err != nil {
		return "", &DeparseError{Err: err}
	}

	return text, nil
}
