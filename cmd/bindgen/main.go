// Command bindgen inspects declaration files and calls functions of a
// native library through the marshaling runtime.
//
// Usage:
//
//	bindgen [--wasm lib.wasm] describe [--format text|yaml] [decl.yaml]
//	bindgen check decl.yaml...
//	bindgen [--wasm lib.wasm] call FUNC [ARG...]
//	bindgen [--wasm lib.wasm] -i
//
// Without --wasm the built-in demo library is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/wippyai/bindgen/internal/fixture"
	"github.com/wippyai/bindgen/native"
	"github.com/wippyai/bindgen/runtime"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bindgen",
		Usage: "Inspect and call native libraries through typed bindings",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log calls and handle lifecycle at debug level"},
			&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "open the interactive caller"},
			wasmFlag(),
		},
		Before: func(c *cli.Context) error {
			log := newLogger(c.App.ErrWriter, c.Bool("verbose"))
			runtime.SetLogger(log)
			native.SetLogger(log)
			return nil
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("interactive") {
				return cli.ShowAppHelp(c)
			}
			return runInteractive(c)
		},
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			describeCommand(),
			checkCommand(),
			callCommand(),
		},
	}
}

func wasmFlag() cli.Flag {
	return &cli.PathFlag{
		Name:  "wasm",
		Usage: "load the native library from a WebAssembly module exporting __bindgen_describe",
	}
}

// openRuntime binds a runtime to the library named by --wasm, or to the
// demo library.
func openRuntime(c *cli.Context) (*runtime.Runtime, error) {
	ctx := c.Context
	lib, err := openLibrary(c)
	if err != nil {
		return nil, err
	}
	rt, err := runtime.New(ctx, lib)
	if err != nil {
		lib.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func openLibrary(c *cli.Context) (native.Library, error) {
	path := c.Path("wasm")
	if path == "" {
		return fixture.New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return native.LoadWasm(c.Context, data, &native.WasmConfig{Name: path})
}

func closeRuntime(ctx context.Context, rt *runtime.Runtime) {
	if err := rt.Close(ctx); err != nil {
		runtime.Logger().Warn("closing runtime", zap.Error(err))
	}
}

// exitErrHandler preserves exit codes from cli.Exit and prints other errors.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(c.App.ErrWriter, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
	os.Exit(1)
}
