package console

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// HandleFunc runs a command. A returned error is printed and the process
// exits with status 1.
type HandleFunc func(ctx context.Context, in *Input, out *Output) error

// Command is a musket command, contributed by a service provider.
//
//	// Laravel: protected $signature = 'key:generate {--show} {--force}';
//	&console.Command{
//	    Name:        "key:generate",
//	    Description: "Set the application key",
//	    Flags: func(fs *pflag.FlagSet) {
//	        fs.Bool("show", false, "Display the key instead of modifying files")
//	    },
//	    Handle: func(ctx context.Context, in *console.Input, out *console.Output) error { ... },
//	}
type Command struct {
	Name        string
	Description string
	Usage       string // argument synopsis, e.g. "<name> [path]"
	Args        cobra.PositionalArgs
	Flags       func(fs *pflag.FlagSet)
	Handle      HandleFunc
}

func (c *Command) use() string {
	if c.Usage == "" {
		return c.Name
	}
	return c.Name + " " + c.Usage
}
