package models

import (
	"encoding/json"
	"fmt"

	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"google.golang.org/protobuf/encoding/protojson"
)

// Полное имя сервиса и пути его методов.
const (
	ServiceName      = "bytebase.v1.CelService"
	BatchParsePath   = "/" + ServiceName + "/BatchParse"
	BatchDeparsePath = "/" + ServiceName + "/BatchDeparse"
)

var (
	marshalOptions   = protojson.MarshalOptions{}
	unmarshalOptions = protojson.UnmarshalOptions{DiscardUnknown: true}
)

type BatchParseRequest struct {
	Expressions []string `json:"expressions"`
}

// BatchParseResponse — Expressions[i] соответствует BatchParseRequest.Expressions[i].
type BatchParseResponse struct {
	Expressions []*exprpb.Expr `json:"-"`
}

func (r BatchParseResponse) MarshalJSON() ([]byte, error) {
	return marshalExprs(r.Expressions)
}

func (r *BatchParseResponse) UnmarshalJSON(data []byte) error {
	exprs, err := unmarshalExprs(data)
	if err != nil {
		return err
	}
	r.Expressions = exprs
	return nil
}

type BatchDeparseRequest struct {
	Expressions []*exprpb.Expr `json:"-"`
}

func (r BatchDeparseRequest) MarshalJSON() ([]byte, error) {
	return marshalExprs(r.Expressions)
}

func (r *BatchDeparseRequest) UnmarshalJSON(data []byte) error {
	exprs, err := unmarshalExprs(data)
	if err != nil {
		return err
	}
	r.Expressions = exprs
	return nil
}

// BatchDeparseResponse — Expressions[i] соответствует BatchDeparseRequest.Expressions[i].
type BatchDeparseResponse struct {
	Expressions []string `json:"expressions"`
}

// Error — тело ответа с ошибкой в формате Connect.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// exprList — JSON-обёртка, деревья внутри кодируются через protojson.
type exprList struct {
	Expressions []json.RawMessage `json:"expressions"`
}

func marshalExprs(exprs []*exprpb.Expr) ([]byte, error) {
	list := exprList{Expressions: make([]json.RawMessage, len(exprs))}
	for i, expr := range exprs {
		if expr == nil {
			list.Expressions[i] = json.RawMessage("{}")
			continue
		}
		raw, err := marshalOptions.Marshal(expr)
		if err != nil {
			return nil, fmt.Errorf("expressions[%d]: %w", i, err)
		}
		list.Expressions[i] = raw
	}
	return json.Marshal(list)
}

func unmarshalExprs(data []byte) ([]*exprpb.Expr, error) {
	var list exprList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	exprs := make([]*exprpb.Expr, len(list.Expressions))
	for i, raw := range list.Expressions {
		expr := &exprpb.Expr{}
		if err := unmarshalOptions.Unmarshal(raw, expr); err != nil {
			return nil, fmt.Errorf("expressions[%d]: %w", i, err)
		}
		exprs[i] = expr
	}
	return exprs, nil
}
