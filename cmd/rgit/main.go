package main

import (
	"fmt"
	"os"

	"rgit-go/internal/app"
	"rgit-go/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an RgitApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Commit", "CreateBranch");
// args are recorded with it in the operation log.
func newApp(cmd *cobra.Command, operation string, args ...string) (*app.RgitApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewRgitApp(cmd.Context(), cfg, app.NewOperation(operation, args...))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	a.SetPassphraseSource(passphraseFromEnvOrPrompt)

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "rgit",
	Short:        "Version control for resumes",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		userID := uuid.New().String()
		cfg := config.NewConfig(userID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User ID:    %s\n", cfg.UserID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Diff Match: %s\n", cfg.Diff.Match)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Check that the configured vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "CheckVault")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckVault(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Vault OK")
		return nil
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the snapshot encryption key",
}

var keyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "KeyInit")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readNewPassphrase(os.Stderr)
		if err != nil {
			return err
		}
		if err := a.InitKey(passphrase); err != nil {
			return fmt.Errorf("initializing key: %w", err)
		}
		fmt.Println("Encryption key created")
		return nil
	},
}

// resume command
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Manage resumes",
}

var resumeCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a resume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "CreateResume", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.CreateResume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created resume %s (%s)\n", r.Title, r.ID)
		return nil
	},
}

var resumeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resumes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListResumes")
		if err != nil {
			return err
		}
		defer a.Close()

		resumes, current, err := a.ListResumes(cmd.Context())
		if err != nil {
			return err
		}
		if len(resumes) == 0 {
			fmt.Println("No resumes.")
			return nil
		}
		for _, r := range resumes {
			marker := " "
			if r.ID == current {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  %s\n", marker, r.ID, r.CreatedAt.Format("2006-01-02"), r.Title)
		}
		return nil
	},
}

var resumeUseCmd = &cobra.Command{
	Use:   "use ID|TITLE",
	Short: "Select the resume other commands work on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "UseResume")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.UseResume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Using resume %s (%s)\n", r.Title, r.ID)
		return nil
	},
}

var resumeDeleteCmd = &cobra.Command{
	Use:   "delete ID|TITLE",
	Short: "Delete a resume and all of its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteResume", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.DeleteResume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted resume %s (%s)\n", r.Title, r.ID)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)

	keyCmd.AddCommand(keyInitCmd)

	resumeCmd.AddCommand(resumeCreateCmd)
	resumeCmd.AddCommand(resumeListCmd)
	resumeCmd.AddCommand(resumeUseCmd)
	resumeCmd.AddCommand(resumeDeleteCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(resumeCmd)
}
