// Package filter parses AIP-160 filter expressions for list calls and
// translates them to SQL fragments over the connections schema.
package filter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

// requestFields maps request filter fields to SQL columns.
var requestFields = map[string]string{
	"community_id": "community_id",
	"requester_id": "requester_user_id",
	"status":       "status",
	"created_at":   "created_at",
}

// connectionFields maps connection filter fields to SQL columns.
var connectionFields = map[string]string{
	"community_id": "community_id",
	"created_at":   "created_at",
}

func requestDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("community_id", filtering.TypeString),
		filtering.DeclareIdent("requester_id", filtering.TypeString),
		filtering.DeclareIdent("status", filtering.TypeString),
		filtering.DeclareIdent("created_at", filtering.TypeTimestamp),
	)
}

func connectionDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("community_id", filtering.TypeString),
		filtering.DeclareIdent("created_at", filtering.TypeTimestamp),
	)
}

// ParseRequestFilter translates a request list filter to a SQL fragment.
// An empty filter yields an empty fragment.
func ParseRequestFilter(filterStr string) (storage.ListFilter, error) {
	return parse(filterStr, requestDeclarations, requestFields)
}

// ParseConnectionFilter translates a connection list filter to a SQL fragment.
func ParseConnectionFilter(filterStr string) (storage.ListFilter, error) {
	return parse(filterStr, connectionDeclarations, connectionFields)
}

func parse(filterStr string, declare func() (*filtering.Declarations, error), fields map[string]string) (storage.ListFilter, error) {
	if strings.TrimSpace(filterStr) == "" {
		return storage.ListFilter{}, nil
	}

	decls, err := declare()
	if err != nil {
		return storage.ListFilter{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return storage.ListFilter{}, fmt.Errorf("parse filter: %w", err)
	}

	translator := translator{fields: fields}
	return translator.expr(parsed.CheckedExpr.Expr)
}

type translator struct {
	fields map[string]string
}

func (t translator) expr(e *expr.Expr) (storage.ListFilter, error) {
	if e == nil {
		return storage.ListFilter{}, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return storage.ListFilter{}, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	return t.call(call.CallExpr)
}

func (t translator) call(call *expr.Expr_Call) (storage.ListFilter, error) {
	switch call.Function {
	case "_&&_", "AND":
		return t.logical(call.Args, "AND")
	case "_||_", "OR":
		return t.logical(call.Args, "OR")
	case "_==_", "=":
		return t.comparison(call.Args, "=")
	case "_!=_", "!=":
		return t.comparison(call.Args, "!=")
	case "_<_", "<":
		return t.comparison(call.Args, "<")
	case "_<=_", "<=":
		return t.comparison(call.Args, "<=")
	case "_>_", ">":
		return t.comparison(call.Args, ">")
	case "_>=_", ">=":
		return t.comparison(call.Args, ">=")
	default:
		return storage.ListFilter{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func (t translator) logical(args []*expr.Expr, op string) (storage.ListFilter, error) {
	if len(args) != 2 {
		return storage.ListFilter{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := t.expr(args[0])
	if err != nil {
		return storage.ListFilter{}, err
	}
	right, err := t.expr(args[1])
	if err != nil {
		return storage.ListFilter{}, err
	}
	return storage.ListFilter{
		Where: fmt.Sprintf("(%s %s %s)", left.Where, op, right.Where),
		Args:  append(left.Args, right.Args...),
	}, nil
}

func (t translator) comparison(args []*expr.Expr, op string) (storage.ListFilter, error) {
	if len(args) != 2 {
		return storage.ListFilter{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := fieldName(args[0])
	if err != nil {
		return storage.ListFilter{}, err
	}
	column, ok := t.fields[field]
	if !ok {
		return storage.ListFilter{}, fmt.Errorf("unknown field: %s", field)
	}
	value, err := extractValue(args[1])
	if err != nil {
		return storage.ListFilter{}, err
	}

	return storage.ListFilter{
		Where: fmt.Sprintf("%s %s ?", column, op),
		Args:  []any{value},
	}, nil
}

func fieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	ident, ok := e.ExprKind.(*expr.Expr_IdentExpr)
	if !ok {
		return "", fmt.Errorf("expected identifier, got %T", e.ExprKind)
	}
	return ident.IdentExpr.Name, nil
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return constValue(kind.ConstExpr)
	case *expr.Expr_CallExpr:
		if kind.CallExpr.Function == "timestamp" && len(kind.CallExpr.Args) == 1 {
			return timestampMillis(kind.CallExpr.Args[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func constValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}
	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

// timestampMillis converts timestamp("...") arguments to the UnixMilli
// representation the schema stores.
func timestampMillis(e *expr.Expr) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("nil timestamp argument")
	}
	constExpr, ok := e.ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
	strVal, ok := constExpr.ConstExpr.ConstantKind.(*expr.Constant_StringValue)
	if !ok {
		return 0, fmt.Errorf("timestamp argument must be a string")
	}
	parsed, err := time.Parse(time.RFC3339, strVal.StringValue)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, strVal.StringValue)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp format: %s", strVal.StringValue)
		}
	}
	return parsed.UTC().UnixMilli(), nil
}
