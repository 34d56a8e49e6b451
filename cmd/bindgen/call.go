package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/value"
)

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Call a free or static function with textual arguments",
		ArgsUsage: "FUNC [ARG...]",
		Description: "FUNC is a function name or Owner.name for static functions.\n" +
			"Arguments are strings as given, or YAML flow values for other types.",
		Action: callAction,
	}
}

func callAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("call needs a function name", 2)
	}
	ctx := c.Context
	rt, err := openRuntime(c)
	if err != nil {
		return err
	}
	defer closeRuntime(ctx, rt)

	f, err := resolveFunc(rt.Catalog(), c.Args().First())
	if err != nil {
		return err
	}
	args, err := parseArgs(f, c.Args().Tail())
	if err != nil {
		return err
	}

	result, err := rt.Invoke(ctx, f, nil, args...)
	if err != nil {
		return err
	}
	if result != nil {
		fmt.Fprintln(c.App.Writer, value.Format(result))
	}
	return nil
}

// resolveFunc finds a free function by name or a static one as Owner.name.
func resolveFunc(cat *schema.Catalog, name string) (*schema.Func, error) {
	var (
		f  *schema.Func
		ok bool
	)
	if owner, method, found := strings.Cut(name, "."); found {
		f, ok = cat.Method(owner, method)
	} else {
		f, ok = cat.Func(name)
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseCall, "function", name)
	}
	if f.Receiver == schema.ReceiverHandle {
		return nil, errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("%s needs a handle receiver and cannot be called from the command line", f.Symbol()))
	}
	return f, nil
}

func parseArgs(f *schema.Func, texts []string) ([]any, error) {
	if len(texts) != len(f.Params) {
		return nil, errors.InvalidInput(errors.PhaseParse,
			fmt.Sprintf("%s takes %d arguments, got %d", f.Symbol(), len(f.Params), len(texts)))
	}
	args := make([]any, len(texts))
	for i, p := range f.Params {
		v, err := parseArg(p.Type, texts[i])
		if err != nil {
			if e, ok := errors.AsError(err); ok {
				e.Path = append([]string{p.Name}, e.Path...)
			}
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
