package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rgit-go/internal/diff"
	"rgit-go/internal/model"
)

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checked-out branch and uncommitted changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("On branch %s\n", st.Branch)
		if st.BaseCommit != nil {
			fmt.Printf("Base commit %s %s\n", st.BaseCommit.ShortHash(), st.BaseCommit.Message)
		}
		if st.Behind() {
			fmt.Println("The branch has moved since checkout; commit will be rejected until you check it out again.")
		}
		if len(st.Changes) == 0 {
			fmt.Println("Nothing to commit, working tree clean")
			return nil
		}
		fmt.Println("Changes not committed:")
		printFields(st.Changes)
		return nil
	},
}

// commit command
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record the working tree on the checked-out branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp(cmd, "Commit", message)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Commit(cmd.Context(), message)
		if err != nil {
			return err
		}
		fmt.Printf("[%s %s] %s\n", res.Commit.BranchName, res.ShortHash, res.Commit.Message)
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log [BRANCH]",
	Short: "Show the commit history of a branch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "Log")
		if err != nil {
			return err
		}
		defer a.Close()

		var branch string
		if len(args) > 0 {
			branch = args[0]
		}
		commits, err := a.Log(cmd.Context(), branch, limit)
		if err != nil {
			return err
		}
		if len(commits) == 0 {
			fmt.Println("No commits.")
			return nil
		}
		for _, c := range commits {
			fmt.Printf("%s  %s  %-12s %s\n",
				c.ShortHash(),
				c.CreatedAt.Format("2006-01-02 15:04:05"),
				c.BranchName,
				c.Message,
			)
		}
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff REF_A REF_B",
	Short: "Compare two branches or commits field by field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		match, _ := cmd.Flags().GetString("match")
		patches, _ := cmd.Flags().GetBool("patch")

		a, err := newApp(cmd, "Diff")
		if err != nil {
			return err
		}
		defer a.Close()

		fields, err := a.Diff(cmd.Context(), args[0], args[1], match, patches)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			fmt.Println("No differences.")
			return nil
		}
		printFields(fields)
		printSummary(diff.Summarize(fields))
		return nil
	},
}

// compare command
var compareCmd = &cobra.Command{
	Use:   "compare BRANCH_A BRANCH_B",
	Short: "Show where two branches diverged and how their tips differ",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		match, _ := cmd.Flags().GetString("match")

		a, err := newApp(cmd, "Compare")
		if err != nil {
			return err
		}
		defer a.Close()

		cmp, err := a.Compare(cmd.Context(), args[0], args[1], match)
		if err != nil {
			return err
		}

		if cmp.MergeBase == "" {
			fmt.Println("Merge base: none (unrelated histories)")
		} else {
			fmt.Printf("Merge base: %s\n", cmp.MergeBase)
		}
		printCommits(fmt.Sprintf("Only on %s:", cmp.BranchA.Name), cmp.OnlyA)
		printCommits(fmt.Sprintf("Only on %s:", cmp.BranchB.Name), cmp.OnlyB)
		if len(cmp.Fields) > 0 {
			fmt.Printf("Changes from %s to %s:\n", cmp.BranchA.Name, cmp.BranchB.Name)
			printFields(cmp.Fields)
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show REF",
	Short: "Print the resume document of a branch or commit as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Show")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.Show(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

// ops command
var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "View the operation log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "ListOperations")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.Operations(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func printFields(fields []diff.Field) {
	sections, groups := diff.BySection(fields)
	for _, sec := range sections {
		fmt.Printf("  %s\n", sec)
		for _, f := range groups[sec] {
			switch f.Status {
			case diff.StatusAdded:
				fmt.Printf("    + %s: %q\n", f.Label, f.ValueB)
			case diff.StatusRemoved:
				fmt.Printf("    - %s: %q\n", f.Label, f.ValueA)
			default:
				fmt.Printf("    ~ %s: %q -> %q\n", f.Label, f.ValueA, f.ValueB)
			}
			if f.Patch != "" {
				fmt.Print(f.Patch)
			}
		}
	}
}

func printSummary(s diff.Summary) {
	fmt.Printf("%d added, %d removed, %d modified in %d section(s)\n", s.Added, s.Removed, s.Modified, s.Sections)
}

func printCommits(title string, commits []*model.Commit) {
	fmt.Println(title)
	if len(commits) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, c := range commits {
		fmt.Printf("  %s %s\n", c.ShortHash(), c.Message)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	_ = commitCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 20, "Maximum number of commits to show")
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().String("match", "", "List entry matching: position or id (default from config)")
	diffCmd.Flags().Bool("patch", false, "Show line patches for multi-line fields")
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().String("match", "", "List entry matching: position or id (default from config)")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(opsCmd)
	opsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
