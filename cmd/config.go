package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/brogergvhs/chapterdl/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the active config or manage config profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Loaded config from:\n  %s\n\n", used)
		cfg.Print()
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [label]",
	Short: "Create a profile with default values (label defaults to Default) and make it active",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := config.DefaultLabel
		if len(args) == 1 {
			label = args[0]
		}

		path, err := config.InitConfig(label)
		if errors.Is(err, os.ErrExist) {
			fmt.Printf("Config %q already exists at:\n  %s\n", label, path)
			fmt.Println("It is now active.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println("Config created at:", path)
		fmt.Printf("This config is now active (label: %s).\n", label)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := config.ListConfigs()
		if err != nil {
			return fmt.Errorf("cannot read configs directory: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
		_, _ = fmt.Fprintln(w, "LABEL\tPATH\tACTIVE")
		for _, c := range list {
			mark := ""
			if c.Active {
				mark = "yes"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Label, c.Path, mark)
		}

		return w.Flush()
	},
}

var configSwitchCmd = &cobra.Command{
	Use:   "switch [label]",
	Short: "Switch to a different config profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string

		if len(args) == 1 {
			label = args[0]
		} else {
			list, err := config.ListConfigs()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return fmt.Errorf("no configs available, run `chapterdl config init` first")
			}

			items := make([]string, len(list))
			for i, c := range list {
				items[i] = c.Label
				if c.Active {
					items[i] += "  (active)"
				}
			}

			prompt := promptui.Select{
				Label: "Select config",
				Items: items,
			}

			idx, _, err := prompt.Run()
			if err != nil {
				return fmt.Errorf("selection cancelled")
			}

			label = list[idx].Label
		}

		if err := config.SwitchConfig(label); err != nil {
			return err
		}

		fmt.Println("Switched to:", label)
		return nil
	},
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Remove a config profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]

		if active, _ := config.CurrentLabel(); label == active && !flagForce {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Config %q is currently active. Remove it anyway", label),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := config.RemoveConfig(label); err != nil {
			return err
		}

		fmt.Printf("Removed config %q\n", label)
		return nil
	},
}

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Rename a config profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RenameConfig(args[0], args[1]); err != nil {
			return err
		}

		fmt.Printf("Renamed config %q to %q\n", args[0], args[1])
		return nil
	},
}

func init() {
	configRemoveCmd.Flags().BoolVar(&flagForce, "force", false, "remove the active config without asking")

	configCmd.AddCommand(configInitCmd, configListCmd, configSwitchCmd, configRemoveCmd, configRenameCmd)
	rootCmd.AddCommand(configCmd)
}
