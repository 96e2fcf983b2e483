package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// branch command
var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a branch from the current (or --from) branch tip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp(cmd, "CreateBranch", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.CreateBranch(cmd.Context(), args[0], from, description)
		if err != nil {
			return err
		}
		fmt.Printf("Created branch %s\n", b.Name)
		return nil
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a branch; its commits are kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteBranch", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteBranch(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted branch %s\n", args[0])
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListBranches")
		if err != nil {
			return err
		}
		defer a.Close()

		branches, current, err := a.ListBranches(cmd.Context())
		if err != nil {
			return err
		}
		for _, b := range branches {
			marker := " "
			if b.Name == current {
				marker = "*"
			}
			tip := "(no commits)"
			if b.HasCommits() {
				tip = b.TipCommitID
			}
			fmt.Printf("%s %-24s %s  %s\n", marker, b.Name, tip, b.Description)
		}
		return nil
	},
}

// checkout command
var checkoutCmd = &cobra.Command{
	Use:   "checkout BRANCH",
	Short: "Load a branch into the working tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(cmd, "Checkout", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.Checkout(cmd.Context(), args[0], force)
		if err != nil {
			return err
		}
		fmt.Printf("Switched to branch %s (%d blocks)\n", ws.BranchName, ws.Tree.Len())
		return nil
	},
}

func init() {
	branchCmd.AddCommand(branchCreateCmd)
	branchCreateCmd.Flags().String("from", "", "Source branch (default: the checked-out branch)")
	branchCreateCmd.Flags().StringP("description", "d", "", "Branch description")
	branchCmd.AddCommand(branchDeleteCmd)
	branchCmd.AddCommand(branchListCmd)

	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(checkoutCmd)
	checkoutCmd.Flags().BoolP("force", "f", false, "Discard uncommitted changes")
}
