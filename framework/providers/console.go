package providers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/km-arc/h3ravel/framework/console"
	"github.com/km-arc/h3ravel/framework/foundation"
)

// ConsoleServiceProvider contributes the framework's own musket commands:
// key:generate and about. It only loads under musket.
type ConsoleServiceProvider struct {
	foundation.BaseProvider
}

func (p *ConsoleServiceProvider) Name() string        { return "console" }
func (p *ConsoleServiceProvider) RunsInConsole() bool { return true }

func (p *ConsoleServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	p.RegisterCommands(keyGenerateCommand(app), aboutCommand(app))
	return nil
}

// GenerateKey returns a random 32-byte key in APP_KEY format.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "base64:" + base64.StdEncoding.EncodeToString(b), nil
}

func keyGenerateCommand(app *foundation.Application) *console.Command {
	return &console.Command{
		Name:        "key:generate",
		Description: "Set the application key",
		Args:        cobra.NoArgs,
		Flags: func(fs *pflag.FlagSet) {
			fs.Bool("show", false, "Display the key instead of modifying files")
			fs.Bool("force", false, "Force the operation to run when in production")
		},
		Handle: func(_ context.Context, in *console.Input, out *console.Output) error {
			key, err := GenerateKey()
			if err != nil {
				return err
			}
			if in.Bool("show") {
				out.Line("%s", key)
				return nil
			}

			if app.IsProduction() && !in.Bool("force") &&
				!in.Confirm("The application is in production. Do you really wish to run this command?", false) {
				out.Warn("Command cancelled.")
				return nil
			}

			path := app.BasePath(".env")
			env, err := godotenv.Read(path)
			if errors.Is(err, os.ErrNotExist) {
				env = map[string]string{}
			} else if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			env["APP_KEY"] = key
			if err := godotenv.Write(env, path); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			_ = os.Setenv("APP_KEY", key)

			out.Success("Application key set successfully.")
			return nil
		},
	}
}

func aboutCommand(app *foundation.Application) *console.Command {
	return &console.Command{
		Name:        "about",
		Description: "Display basic information about your application",
		Args:        cobra.NoArgs,
		Handle: func(_ context.Context, _ *console.Input, out *console.Output) error {
			cfg, err := appConfig(app.Container)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Application Name", cfg.App.Name},
				{"Framework Version", app.Version()},
				{"Environment", app.Environment()},
				{"Debug Mode", strconv.FormatBool(app.IsDebug())},
				{"URL", cfg.App.URL},
				{"Base Path", app.BasePath()},
				{"Dist Path", app.Path(foundation.PathDist)},
				{"Database", cfg.DB.Driver},
				{"Cache", cfg.Cache.Driver},
			}
			out.Table([]string{"ENVIRONMENT", ""}, rows)

			out.Line("")
			providers := app.Providers.Providers()
			list := make([][]string, 0, len(providers))
			for i, p := range providers {
				list = append(list, []string{strconv.Itoa(i + 1), foundation.NameOf(p), strconv.Itoa(foundation.PriorityOf(p))})
			}
			out.Table([]string{"#", "PROVIDER", "PRIORITY"}, list)
			return nil
		},
	}
}
