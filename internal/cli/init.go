package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/npulab/nputop/internal/config"
	"github.com/npulab/nputop/internal/errors"
	"golang.org/x/term"
)

// configInitCommand writes the commented default config file.
func configInitCommand(path string, force bool) error {
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New(errors.ErrConfig,
					fmt.Sprintf("Config file already exists: %s", path),
					"Use --force to overwrite")
			}

			var overwrite bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
						Value(&overwrite),
				),
			)
			if err := form.Run(); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Failed to get user input",
					"Try running with --force to overwrite")
			}
			if !overwrite {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		// WriteDefault refuses to clobber, so clear the old file first.
		if err := os.Remove(path); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot remove existing config: "+path,
				"Check file permissions")
		}
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}
