package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weave/internal/engine"
	"weave/internal/eventbus"
	"weave/internal/lifecycle"
	"weave/internal/node"
	"weave/pkg/blueprint"
	"weave/pkg/typesys"
)

func testRegistry(t *testing.T) *node.Registry {
	t.Helper()
	reg := node.NewRegistry()
	err := reg.Register(node.Def{
		TypeID: "math/add", Name: "Add", Category: "math", Pure: true,
		Inputs:  []typesys.Pin{{Name: "a", Type: typesys.Int()}, {Name: "b", Type: typesys.Int()}},
		Outputs: []typesys.Pin{{Name: "sum", Type: typesys.Int()}},
	}, node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		return node.Pure(nil)
	}))
	require.NoError(t, err)
	return reg
}

func testServer(t *testing.T) *Server {
	t.Helper()
	reg := testRegistry(t)
	ex := engine.NewExecutor(reg, engine.Options{}, nil)
	bus := eventbus.New(8)
	mgr := lifecycle.NewManager(bus, nil)
	return NewServer(ex, reg, mgr)
}

func TestHealthzReportsBlueprintCount(t *testing.T) {
	s := testServer(t)
	bp := blueprint.NewBlueprint("bp-1", "Test", "1.0.0")
	require.NoError(t, s.executor.LoadBlueprint(bp))

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["blueprints"])
}

func TestListNodeTypesIncludesRegistered(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/nodes", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	var body struct {
		Nodes []map[string]interface{} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Nodes, 1)
	assert.Equal(t, "math/add", body.Nodes[0]["typeId"])
}

func TestValidateReportsViolationsForUnknownNodeType(t *testing.T) {
	s := testServer(t)
	bp := blueprint.NewBlueprint("bp-bad", "Bad", "1.0.0")
	bp.Nodes = append(bp.Nodes, blueprint.BlueprintNode{ID: "n1", Type: "does/not-exist"})
	bp.Connections = append(bp.Connections, blueprint.Connection{
		ID: "c1", Kind: blueprint.ConnData,
		SourceNodeID: "n1", SourcePinID: "out", TargetNodeID: "n1", TargetPinID: "in",
	})
	payload, err := json.Marshal(bp)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/blueprints/validate", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	var body struct {
		Valid      bool          `json:"valid"`
		Violations []interface{} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Valid)
	assert.NotEmpty(t, body.Violations)
}

func TestExecuteUnknownBlueprintReturns404(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("POST", "/blueprints/missing/execute", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestListServicesEmptyByDefault(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/services", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	var body struct {
		Services []interface{} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Services)
}
