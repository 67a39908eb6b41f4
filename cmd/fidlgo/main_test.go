package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/spf13/afero"
)

// stripLocations deletes every "location" key from a decoded JSON value,
// recursively. Golden-file IR comparisons care about declared shape and
// structure, not the exact byte offsets of a hand-written fixture source.
func stripLocations(v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		delete(val, "location")
		for _, child := range val {
			stripLocations(child)
		}
	case []interface{}:
		for _, child := range val {
			stripLocations(child)
		}
	}
}

// TestCompileGoldenStructIR drives the CLI's compile subcommand against
// an in-memory filesystem and deep-diffs the produced JSON IR against a
// hand-authored golden fixture, per spec's test-tooling commitment to
// go-test/deep for IR comparisons too large for a useful reflect.DeepEqual
// failure message.
func TestCompileGoldenStructIR(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := `library golden;

type Point = struct {
    x int32;
    y int32;
};
`
	if err := afero.WriteFile(fs, "point.fidl", []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"compile", "point.fidl", "--json", "out.json"}, fs, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("compile exited %d, stderr: %s", code, stderr.String())
	}

	actualBytes, err := afero.ReadFile(fs, "out.json")
	if err != nil {
		t.Fatalf("reading compiled IR: %v", err)
	}
	var actual interface{}
	if err := json.Unmarshal(actualBytes, &actual); err != nil {
		t.Fatalf("unmarshalling compiled IR: %v", err)
	}
	stripLocations(actual)

	const goldenJSON = `{
  "name": "golden",
  "bits_declarations": [],
  "const_declarations": [],
  "enum_declarations": [],
  "experimental_resource_declarations": [],
  "protocol_declarations": [],
  "service_declarations": [],
  "struct_declarations": [
    {
      "name": "golden/Point",
      "is_resource": false,
      "members": [
        {
          "name": "x",
          "type": {
            "kind_v2": "primitive",
            "subtype": "int32",
            "type_shape_v2": {
              "inline_size": 4,
              "alignment": 4,
              "depth": 0,
              "max_handles": 0,
              "max_out_of_line": 0,
              "has_padding": false,
              "has_flexible_envelope": false
            }
          },
          "field_shape_v2": {"offset": 0, "padding": 0}
        },
        {
          "name": "y",
          "type": {
            "kind_v2": "primitive",
            "subtype": "int32",
            "type_shape_v2": {
              "inline_size": 4,
              "alignment": 4,
              "depth": 0,
              "max_handles": 0,
              "max_out_of_line": 0,
              "has_padding": false,
              "has_flexible_envelope": false
            }
          },
          "field_shape_v2": {"offset": 4, "padding": 0}
        }
      ],
      "type_shape_v2": {
        "inline_size": 8,
        "alignment": 4,
        "depth": 0,
        "max_handles": 0,
        "max_out_of_line": 0,
        "has_padding": false,
        "has_flexible_envelope": false
      }
    }
  ],
  "external_struct_declarations": [],
  "table_declarations": [],
  "union_declarations": [],
  "alias_declarations": [],
  "new_type_declarations": [],
  "declaration_order": ["golden/Point"],
  "declarations": {"golden/Point": "struct"}
}`
	var expected interface{}
	if err := json.Unmarshal([]byte(goldenJSON), &expected); err != nil {
		t.Fatalf("unmarshalling golden fixture: %v", err)
	}

	if diff := deep.Equal(expected, actual); diff != nil {
		t.Errorf("compiled IR does not match golden fixture:\n%s", strings.Join(diff, "\n"))
	}
}
