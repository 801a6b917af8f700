package audit

import (
	"strings"
	"testing"

	"weave/pkg/value"
)

func TestDescribeOutputsEmpty(t *testing.T) {
	if DescribeOutputs(nil) != "{}" {
		t.Fatalf("expected {} for nil/empty map")
	}
}

func TestDescribeOutputsFormatsEntries(t *testing.T) {
	s := DescribeOutputs(map[string]value.Value{"sum": value.Int(5)})
	if !strings.Contains(s, "sum=5") {
		t.Fatalf("expected sum=5 in output, got %s", s)
	}
}

func TestSchemaDeclaresExpectedTables(t *testing.T) {
	for _, table := range []string{"execution_audit", "service_transition_audit"} {
		if !strings.Contains(Schema, table) {
			t.Fatalf("expected schema to declare table %s", table)
		}
	}
}
