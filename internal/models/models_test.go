package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchDeparseRequestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
		check   func(t *testing.T, req BatchDeparseRequest)
		wantErr bool
	}{
		{
			name: "Test #1 protobuf JSON mapping with string ids",
			body: `{"expressions":[{"id":"2","callExpr":{"function":"_==_","args":[{"id":"1","identExpr":{"name":"x"}},{"id":"3","constExpr":{"int64Value":"1"}}]}}]}`,
			check: func(t *testing.T, req BatchDeparseRequest) {
				call := req.Expressions[0].GetCallExpr()
				require.NotNil(t, call)
				assert.EqualValues(t, 2, req.Expressions[0].GetId())
				assert.Equal(t, "_==_", call.GetFunction())
				assert.Equal(t, "x", call.GetArgs()[0].GetIdentExpr().GetName())
				assert.EqualValues(t, 1, call.GetArgs()[1].GetConstExpr().GetInt64Value())
			},
			wantLen: 1,
		},
		{
			name:    "Test #2 missing field is an empty batch",
			body:    `{}`,
			wantLen: 0,
		},
		{
			name:    "Test #3 unknown fields are ignored",
			body:    `{"expressions":[{"identExpr":{"name":"a"},"future":true}]}`,
			wantLen: 1,
		},
		{
			name:    "Test #4 wrong element type",
			body:    `{"expressions":["a == 1"]}`,
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var req BatchDeparseRequest
			err := json.Unmarshal([]byte(test.body), &req)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, req.Expressions, test.wantLen)
			if test.check != nil {
				test.check(t, req)
			}
		})
	}
}

func TestBatchParseResponseJSON(t *testing.T) {
	var src BatchDeparseRequest
	require.NoError(t, json.Unmarshal([]byte(`{"expressions":[{"id":"1","identExpr":{"name":"a"}}]}`), &src))

	data, err := json.Marshal(BatchParseResponse{Expressions: src.Expressions})
	require.NoError(t, err)

	var generic map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	require.Len(t, generic["expressions"], 1)
	assert.Equal(t, "1", generic["expressions"][0]["id"], "int64 ids use the JSON string form")
	assert.Contains(t, generic["expressions"][0], "identExpr")

	var back BatchParseResponse
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "a", back.Expressions[0].GetIdentExpr().GetName())
}

func TestEmptyResponsesEncodeAsEmptyArrays(t *testing.T) {
	data, err := json.Marshal(BatchParseResponse{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expressions":[]}`, string(data))
}
