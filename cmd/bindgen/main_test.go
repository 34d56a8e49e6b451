package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/wippyai/bindgen/internal/fixture"
	"github.com/wippyai/bindgen/schema"
)

// newTestApp returns the app with its output captured and without the
// process-exiting error handler.
func newTestApp() (*cli.App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app, &stdout, &stderr
}

func TestCall(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "scalar", args: []string{"greet-a-number", "42"}, want: `"Hello, #42!"`},
		{name: "list", args: []string{"roundtrip-vec-s32", "[1, 2, 3, 4]"}, want: "[1, 2, 3, 4]"},
		{name: "data enum", args: []string{"roundtrip-data-enum", "{Bar: Cool string}"}, want: `Bar("Cool string")`},
		{name: "struct", args: []string{"roundtrip-newtype-struct", "123"}, want: "{123}"},
		{name: "static", args: []string{"PersonInfo.static-function"}, want: "7"},
		{name: "generated", args: []string{"generate-data-enum"}, want: `Baz("Randal", 11)`},
		{name: "void", args: []string{"void-return", "1"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, stdout, _ := newTestApp()
			if err := app.Run(append([]string{"bindgen", "call"}, tt.args...)); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := strings.TrimSpace(stdout.String()); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCall_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown", args: []string{"nope"}, want: "not_found"},
		{name: "method", args: []string{"PersonInfo.name"}, want: "handle receiver"},
		{name: "arity", args: []string{"greet-a-number"}, want: "takes 1 arguments"},
		{name: "bad argument", args: []string{"greet-a-number", "x"}, want: "num"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp()
			err := app.Run(append([]string{"bindgen", "call"}, tt.args...))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	t.Run("demo library as text", func(t *testing.T) {
		app, stdout, _ := newTestApp()
		if err := app.Run([]string{"bindgen", "describe"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		out := stdout.String()
		for _, want := range []string{
			"enum EnumWithDiscriminants: s32 { Hello = 0, There = 5, How = 6, Are = 7, You = -12 }",
			"resource PersonInfo",
			"PersonInfo__new new: static func(name: string, age: s32) -> PersonInfo",
			"greet-a-number greet-a-number: func(num: s32) -> string",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output does not contain %q:\n%s", want, out)
			}
		}
	})

	t.Run("file as yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "decl.yaml")
		if err := os.WriteFile(path, fixture.Declarations(), 0o644); err != nil {
			t.Fatal(err)
		}
		app, stdout, _ := newTestApp()
		if err := app.Run([]string{"bindgen", "describe", "--format", "yaml", path}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		cat, err := schema.LoadYAML(stdout)
		if err != nil {
			t.Fatalf("output does not load back: %v", err)
		}
		if got, want := len(cat.Funcs()), len(fixture.Catalog().Funcs()); got != want {
			t.Errorf("%d funcs after round trip, want %d", got, want)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		app, _, _ := newTestApp()
		if err := app.Run([]string{"bindgen", "describe", "--format", "xml"}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, fixture.Declarations(), 0o644); err != nil {
		t.Fatal(err)
	}
	dup := `types:
  - name: Dup
    kind: enum
    cases:
      - {name: A, value: 1}
      - {name: B, value: 1}
`
	if err := os.WriteFile(bad, []byte(dup), 0o644); err != nil {
		t.Fatal(err)
	}

	app, stdout, stderr := newTestApp()
	if err := app.Run([]string{"bindgen", "check", good}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "ok ") {
		t.Errorf("output = %q", stdout.String())
	}

	app, _, stderr = newTestApp()
	err := app.Run([]string{"bindgen", "check", good, bad})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(stderr.String(), "invalid_definition") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
